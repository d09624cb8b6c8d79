package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// asTaxonomyError unwraps or wraps err into a *TaxonomyError so every
// formatter below works from the same shape.
func asTaxonomyError(err error) *TaxonomyError {
	if ae, ok := err.(*TaxonomyError); ok {
		return ae
	}
	return Wrap(KindInternal, err)
}

// FormatForUser renders an error for an end user: the message, the
// suggestion when there is one, and the kind tag for reference.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	ae, ok := err.(*TaxonomyError)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(ae.Message)
	sb.WriteString("\n")

	if ae.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(ae.Suggestion)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", ae.Kind))
	return sb.String()
}

// FormatForCLI renders the compact terminal form.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	ae := asTaxonomyError(err)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", ae.Message)
	if ae.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", ae.Suggestion)
	}
	fmt.Fprintf(&sb, "  Kind: %s\n", ae.Kind)
	return sb.String()
}

// jsonError is the wire shape for machine consumers.
type jsonError struct {
	Kind       string            `json:"kind"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
	Transient  bool              `json:"transient,omitempty"`
}

// FormatJSON serializes the error with its kind tag and cause chain.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}
	ae := asTaxonomyError(err)

	je := jsonError{
		Kind:       string(ae.Kind),
		Message:    ae.Message,
		Details:    ae.Details,
		Suggestion: ae.Suggestion,
		Retryable:  ae.Retryable,
		Transient:  ae.Transient,
	}
	if ae.Cause != nil {
		je.Cause = ae.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog flattens the error into slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ae, ok := err.(*TaxonomyError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_kind": string(ae.Kind),
		"message":    ae.Message,
		"retryable":  ae.Retryable,
	}
	if ae.Transient {
		result["transient"] = true
	}
	if ae.Cause != nil {
		result["cause"] = ae.Cause.Error()
	}
	if ae.Suggestion != "" {
		result["suggestion"] = ae.Suggestion
	}
	for k, v := range ae.Details {
		result["detail_"+k] = v
	}
	return result
}
