// Package schema infers, from the first line of an access log, which
// column holds which semantic field, honours user overrides, and builds
// the ordered ScanPlan every scan worker then applies to every line.
//
// Grounded in timegrinder.New's compile-once processor list and in
// ingest/config's env/override layering: classification patterns are
// compiled once at startup and tried in a fixed order, exactly the way
// TimeGrinder.Extract walks its processor list looking for the first hit.
package schema

import (
	"fmt"

	"github.com/traceflow/callgraph/match"
	"github.com/traceflow/callgraph/tokenize"
)

// FieldKind is the closed set of semantic roles a log column can play.
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindRFC3339
	KindRFC3339NoMS
	KindDate
	KindTime
	KindIPAddr
	KindUserAgent
	KindRequest
	KindMethod
	KindProtocol
	KindDomain
	KindEndpoint
)

func (k FieldKind) String() string {
	switch k {
	case KindRFC3339:
		return "rfc3339"
	case KindRFC3339NoMS:
		return "rfc3339-no-ms"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindIPAddr:
		return "ipaddr"
	case KindUserAgent:
		return "useragent"
	case KindRequest:
		return "request"
	case KindMethod:
		return "method"
	case KindProtocol:
		return "protocol"
	case KindDomain:
		return "domain"
	case KindEndpoint:
		return "endpoint"
	default:
		return "unknown"
	}
}

// ParseFieldKind maps a CLI/token spelling to a FieldKind. Only the kinds
// that are legal in --index and --session overrides are accepted.
func ParseFieldKind(s string) (FieldKind, error) {
	switch s {
	case "rfc3339":
		return KindRFC3339, nil
	case "rfc3339-no-ms":
		return KindRFC3339NoMS, nil
	case "date":
		return KindDate, nil
	case "time":
		return KindTime, nil
	case "ipaddr":
		return KindIPAddr, nil
	case "useragent":
		return KindUserAgent, nil
	case "request":
		return KindRequest, nil
	case "method":
		return KindMethod, nil
	case "protocol":
		return KindProtocol, nil
	case "domain":
		return KindDomain, nil
	case "endpoint":
		return KindEndpoint, nil
	default:
		return KindUnknown, fmt.Errorf("schema: unrecognised field kind %q", s)
	}
}

// classificationOrder is the fixed order patterns are tried in. First
// match wins, per spec.md §4.2.
// Endpoint is tried before Domain: the endpoint pattern's leading '/'
// anchor is strictly more specific than domain's bare "contains a dot",
// which would otherwise also match a dotted file extension in a path
// like "/index.html" and starve endpoint of a column.
var classificationOrder = []FieldKind{
	KindRFC3339,
	KindDate,
	KindTime,
	KindIPAddr,
	KindUserAgent,
	KindRequest,
	KindMethod,
	KindProtocol,
	KindEndpoint,
	KindDomain,
}

// classificationPatterns are the anchored patterns from spec.md §6.
var classificationPatterns = map[FieldKind]match.Pattern{
	KindRFC3339:   match.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`),
	KindDate:      match.MustCompile(`^\d{4}-\d{2}-\d{2}`),
	KindTime:      match.MustCompile(`^\d{2}:\d{2}:\d{2}`),
	KindIPAddr:    match.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`),
	KindUserAgent: match.MustCompile(`^(Mozilla|http-kit)`),
	KindRequest:   match.MustCompile(`^(GET|HEAD|POST|PUT|OPTIONS|PATCH)\s+(http|https)://.+`),
	KindMethod:    match.MustCompile(`^(GET|HEAD|POST|PUT|OPTIONS|PATCH)$`),
	KindProtocol:  match.MustCompile(`^(http|https)$`),
	KindDomain:    match.MustCompile(`^.+\..+$`),
	KindEndpoint:  match.MustCompile(`^/.+$`),
}

// FieldInfo describes one column's role in the scan plan.
type FieldInfo struct {
	Kind          FieldKind
	Column        int
	MatchCount    int
	IsSessionKey  bool
	UserSpecified bool
}

// ScanPlan is the ordered list of (column -> field-kind) mappings every
// worker applies to every line, plus the column count every line must
// match to be accepted.
type ScanPlan struct {
	Fields     []FieldInfo
	NumColumns int
}

// Find returns the FieldInfo for kind, if the plan includes it.
func (p *ScanPlan) Find(kind FieldKind) (FieldInfo, bool) {
	for _, f := range p.Fields {
		if f.Kind == kind {
			return f, true
		}
	}
	return FieldInfo{}, false
}

// HasRFC3339 reports whether the plan uses a single rfc3339 timestamp
// column rather than separate date/time columns.
func (p *ScanPlan) HasRFC3339() bool {
	_, ok := p.Find(KindRFC3339)
	return ok
}

// Warning is a non-fatal diagnostic raised during inference.
type Warning struct {
	Message string
}

// Options configures inference: explicit column overrides and the set of
// fields that should be mixed into the session key.
type Options struct {
	// IndexOverrides maps a kind to the user-specified column index it
	// must be read from, bypassing classification entirely.
	IndexOverrides map[FieldKind]int
	// SessionFields is the set of kinds (a subset of {ipaddr,useragent})
	// the caller wants mixed into the session id.
	SessionFields []FieldKind
}

// ParseIndexOverrides parses a "kind=col,kind=col,..." string (the -i/
// --index flag) into a kind->column map.
func ParseIndexOverrides(s string) (map[FieldKind]int, error) {
	out := make(map[FieldKind]int)
	if s == "" {
		return out, nil
	}
	entries := splitNonEmpty(s, ',')
	for _, e := range entries {
		eqIdx := -1
		for i := 0; i < len(e); i++ {
			if e[i] == '=' {
				eqIdx = i
				break
			}
		}
		if eqIdx < 0 {
			return nil, fmt.Errorf("schema: invalid --index entry %q, want kind=col", e)
		}
		kindStr, colStr := e[:eqIdx], e[eqIdx+1:]
		kind, err := ParseFieldKind(kindStr)
		if err != nil {
			return nil, fmt.Errorf("schema: invalid --index entry %q: %w", e, err)
		}
		col, err := parseUint(colStr)
		if err != nil {
			return nil, fmt.Errorf("schema: invalid --index column in %q: %w", e, err)
		}
		if _, exists := out[kind]; exists {
			return nil, fmt.Errorf("schema: kind %s specified twice in --index", kind)
		}
		out[kind] = col
	}
	return out, nil
}

// ParseSessionFields parses a comma list of {ipaddr,useragent} (the -S/
// --session flag).
func ParseSessionFields(s string) ([]FieldKind, error) {
	if s == "" {
		return nil, nil
	}
	var out []FieldKind
	for _, e := range splitNonEmpty(s, ',') {
		kind, err := ParseFieldKind(e)
		if err != nil {
			return nil, fmt.Errorf("schema: invalid --session entry: %w", err)
		}
		if kind != KindIPAddr && kind != KindUserAgent {
			return nil, fmt.Errorf("schema: --session entry %q must be ipaddr or useragent", e)
		}
		out = append(out, kind)
	}
	return out, nil
}

// DefaultSessionFields is the default -S/--session value: both ip and
// user agent.
func DefaultSessionFields() []FieldKind {
	return []FieldKind{KindIPAddr, KindUserAgent}
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func parseUint(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty column index")
	}
	v := 0
	for i := 0; i < len(s); i++ {
		d := s[i]
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("non-numeric column index %q", s)
		}
		v = v*10 + int(d-'0')
	}
	return v, nil
}

// Infer classifies line0's columns, applies overrides, and produces the
// ScanPlan every worker will use. It returns any non-fatal warnings raised
// along the way.
func Infer(line0 []byte, opts Options) (*ScanPlan, []Warning, error) {
	fields, _, _, _ := tokenize.Tokenise(line0, 0, tokenize.NallFieldsMax)
	numColumns := len(fields)

	var warnings []Warning
	assigned := make(map[FieldKind]FieldInfo)
	usedColumns := make(map[int]FieldKind)

	// overrides bypass inference and claim their column outright: an
	// overridden column is not re-classified, so no other kind can take
	// it. The column's line-0 value must still match the kind's own
	// pattern (where the kind has one); a bogus override (pointing ipaddr
	// at a column of endpoints, say) is rejected here.
	for kind, col := range opts.IndexOverrides {
		if col < 0 || col >= numColumns {
			return nil, nil, fmt.Errorf("schema: --index column %d for kind %s is out of range (line 0 has %d columns)", col, kind, numColumns)
		}
		if other, exists := usedColumns[col]; exists {
			return nil, nil, fmt.Errorf("schema: column %d claimed twice by overrides (%s and %s)", col, other, kind)
		}
		if pat, ok := classificationPatterns[kind]; ok && !pat.MatchAnywhere(fields[col].Data) {
			return nil, nil, fmt.Errorf("schema: --index %s=%d: column value %q does not match the %s pattern", kind, col, fields[col].Data, kind)
		}
		usedColumns[col] = kind
		assigned[kind] = FieldInfo{Kind: kind, Column: col, MatchCount: 1, UserSpecified: true}
	}

	// classify remaining (non-overridden) columns, first match wins, in
	// fixed classification order, first column wins per kind.
	for col, fv := range fields {
		if _, claimed := usedColumns[col]; claimed {
			continue
		}
		for _, kind := range classificationOrder {
			pat := classificationPatterns[kind]
			if !pat.MatchAnywhere(fv.Data) {
				continue
			}
			// first pattern to match this column wins the classification,
			// whether or not that kind already has a claimed column.
			if existing, ok := assigned[kind]; ok {
				existing.MatchCount++
				assigned[kind] = existing
				warnings = append(warnings, Warning{Message: fmt.Sprintf(
					"column %d also matches kind %s (already claimed by column %d); pass --index %s=%d to disambiguate",
					col, kind, existing.Column, kind, col)})
			} else {
				assigned[kind] = FieldInfo{Kind: kind, Column: col, MatchCount: 1}
				usedColumns[col] = kind
			}
			break
		}
	}

	plan := &ScanPlan{NumColumns: numColumns}

	// timestamp representation
	if fi, ok := assigned[KindRFC3339]; ok {
		plan.Fields = append(plan.Fields, fi)
	} else {
		dateFI, dateOK := assigned[KindDate]
		timeFI, timeOK := assigned[KindTime]
		if !dateOK || !timeOK {
			return nil, nil, fmt.Errorf("schema: no timestamp representation found (need rfc3339, or both date and time)")
		}
		plan.Fields = append(plan.Fields, dateFI, timeFI)
	}

	// session key fields
	sessionFields := opts.SessionFields
	if sessionFields == nil {
		sessionFields = DefaultSessionFields()
	}
	if len(sessionFields) == 0 {
		return nil, nil, fmt.Errorf("schema: at least one session key field is required")
	}
	for _, kind := range sessionFields {
		fi, ok := assigned[kind]
		if !ok {
			return nil, nil, fmt.Errorf("schema: session key field %s not found in line 0", kind)
		}
		fi.IsSessionKey = true
		plan.Fields = append(plan.Fields, fi)
	}

	// request representation
	if fi, ok := assigned[KindRequest]; ok {
		plan.Fields = append(plan.Fields, fi)
	} else {
		methodFI, methodOK := assigned[KindMethod]
		domainFI, domainOK := assigned[KindDomain]
		endpointFI, endpointOK := assigned[KindEndpoint]
		if !methodOK || !domainOK || !endpointOK {
			return nil, nil, fmt.Errorf("schema: no request representation found (need request, or method+domain+endpoint)")
		}
		plan.Fields = append(plan.Fields, methodFI, domainFI, endpointFI)
		if protoFI, ok := assigned[KindProtocol]; ok {
			plan.Fields = append(plan.Fields, protoFI)
		}
	}

	return plan, warnings, nil
}
