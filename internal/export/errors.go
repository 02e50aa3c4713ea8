package export

import "fmt"

// UnknownRendererError indicates a template names a renderer the pipeline
// has no backend for. Always fatal.
type UnknownRendererError struct {
	Renderer    string
	TemplateUID string
}

func (e *UnknownRendererError) Error() string {
	return fmt.Sprintf("template %s names unknown renderer %q", e.TemplateUID, e.Renderer)
}

// FallbackError surfaces when both the deterministic path and the legacy
// compatibility path fail for a unified export. Both causes are carried so
// neither failure is swallowed.
type FallbackError struct {
	FormID  string
	Primary error
	Legacy  error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf(
		"export of %q failed on both paths: v2: %v; legacy: %v",
		e.FormID, e.Primary, e.Legacy,
	)
}

// Unwrap exposes both causes to errors.Is/As.
func (e *FallbackError) Unwrap() []error {
	return []error{e.Primary, e.Legacy}
}
