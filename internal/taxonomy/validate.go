package taxonomy

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue types reported by the validator.
const (
	IssueOrphanedAttribute = "orphaned-attribute"
	IssueUnknownRole       = "unknown-role"
)

// SpanInfo is the minimal span view the validator needs. Callers map their
// span type onto it; the validator never mutates the underlying set.
type SpanInfo struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
	Role string `json:"role"`
}

// Issue describes one validation finding. Orphaned-attribute issues group
// every orphan span sharing the same missing parent.
type Issue struct {
	Type          string     `json:"type"`
	Severity      Severity   `json:"severity"`
	Spans         []SpanInfo `json:"spans"`
	MissingParent string     `json:"missing_parent,omitempty"`
	Suggestion    string     `json:"suggestion"`
}

// Report is the result of a validation pass.
type Report struct {
	IsValid     bool    `json:"is_valid"`
	HasWarnings bool    `json:"has_warnings"`
	Issues      []Issue `json:"issues"`
}

// Validator audits finished span sets against the registry. It is read-only:
// findings are advisory and never drop or rewrite spans. In strict mode any
// warning also marks the set invalid.
type Validator struct {
	registry *Registry
	strict   bool
}

// NewValidator creates a validator over the given registry.
func NewValidator(r *Registry, strict bool) *Validator {
	return &Validator{registry: r, strict: strict}
}

// Validate audits the span set. An attribute-level span is orphaned when no
// span in the set carries its parent role or an ancestor role on the same
// parent chain. Orphans sharing a missing parent are grouped into one issue.
func (v *Validator) Validate(spans []SpanInfo) Report {
	report := Report{IsValid: true}
	if len(spans) == 0 {
		return report
	}

	roles := make(map[string]bool, len(spans))
	for _, s := range spans {
		roles[s.Role] = true
	}

	orphans := make(map[string][]SpanInfo)
	var unknown []SpanInfo
	for _, s := range spans {
		if s.Role != "" && !v.registry.IsRegistered(s.Role) {
			unknown = append(unknown, s)
			continue
		}
		if !IsAttribute(s.Role) {
			continue
		}
		if !anchored(s.Role, roles) {
			parent := ParentOf(s.Role)
			orphans[parent] = append(orphans[parent], s)
		}
	}

	parents := make([]string, 0, len(orphans))
	for p := range orphans {
		parents = append(parents, p)
	}
	sort.Strings(parents)

	for _, parent := range parents {
		group := orphans[parent]
		report.Issues = append(report.Issues, Issue{
			Type:          IssueOrphanedAttribute,
			Severity:      SeverityWarning,
			Spans:         group,
			MissingParent: parent,
			Suggestion:    fmt.Sprintf("add a %q span to anchor %d attribute span(s)", parent, len(group)),
		})
	}

	if len(unknown) > 0 {
		sev := SeverityWarning
		if v.strict {
			sev = SeverityError
		}
		report.Issues = append(report.Issues, Issue{
			Type:       IssueUnknownRole,
			Severity:   sev,
			Spans:      unknown,
			Suggestion: "use a registered taxonomy identifier or extend the catalog",
		})
	}

	for _, issue := range report.Issues {
		switch issue.Severity {
		case SeverityWarning:
			report.HasWarnings = true
			if v.strict {
				report.IsValid = false
			}
		case SeverityError:
			report.IsValid = false
		}
	}
	return report
}

// WouldOrphan reports whether adding a span with the given role to the
// existing set would create an orphaned attribute. Intended as a cheap
// pre-add check for interactive callers.
func (v *Validator) WouldOrphan(role string, existing []SpanInfo) bool {
	if !IsAttribute(role) {
		return false
	}
	roles := make(map[string]bool, len(existing)+1)
	for _, s := range existing {
		roles[s.Role] = true
	}
	roles[role] = true
	return !anchored(role, roles)
}

// HasOrphans is the boolean-only orphan check for real-time use. It answers
// without building a report.
func (v *Validator) HasOrphans(spans []SpanInfo) bool {
	roles := make(map[string]bool, len(spans))
	for _, s := range spans {
		roles[s.Role] = true
	}
	for _, s := range spans {
		if IsAttribute(s.Role) && !anchored(s.Role, roles) {
			return true
		}
	}
	return false
}

// anchored reports whether an attribute role has its parent chain covered:
// some role in the set equals an ancestor of role ("camera" anchors
// "camera.lens"; "camera.lens" would anchor a deeper "camera.lens.focal").
func anchored(role string, roles map[string]bool) bool {
	for {
		idx := strings.LastIndexByte(role, '.')
		if idx <= 0 {
			return false
		}
		role = role[:idx]
		if roles[role] {
			return true
		}
	}
}
