// Package issuer produces certificate documents. A Registry maps each
// certificate type to the Renderer responsible for it.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/edvin/backoffice/internal/model"
)

// Request carries everything a renderer may need for one document.
type Request struct {
	Record   model.CertificateRecord
	Customer model.Customer
}

// Renderer produces the PDF bytes for one certificate type. Renderers are
// stateless and safe for concurrent use.
type Renderer interface {
	Render(ctx context.Context, req Request) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, req Request) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// Registry dispatches render requests by certificate type.
// It is populated at startup and read-only afterwards.
type Registry struct {
	renderers map[model.CertificateType]Renderer
}

func NewRegistry() *Registry {
	return &Registry{renderers: make(map[model.CertificateType]Renderer)}
}

// Register binds a renderer to a certificate type.
func (r *Registry) Register(t model.CertificateType, renderer Renderer) error {
	if !t.Valid() {
		return fmt.Errorf("register renderer: unknown certificate type %q", t)
	}
	if renderer == nil {
		return fmt.Errorf("register renderer for %s: nil renderer", t)
	}
	if _, exists := r.renderers[t]; exists {
		return fmt.Errorf("register renderer: %s already registered", t)
	}
	r.renderers[t] = renderer
	return nil
}

// Supports reports whether a renderer is registered for t.
func (r *Registry) Supports(t model.CertificateType) bool {
	_, ok := r.renderers[t]
	return ok
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []model.CertificateType {
	types := make([]model.CertificateType, 0, len(r.renderers))
	for t := range r.renderers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Render looks up the renderer strictly by req.Record.Type. Every failure is
// returned as an *Error so callers can classify it.
func (r *Registry) Render(ctx context.Context, req Request) ([]byte, error) {
	t := req.Record.Type
	renderer, ok := r.renderers[t]
	if !ok {
		return nil, Unsupported(t)
	}

	data, err := renderer.Render(ctx, req)
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, Integration(t, "render document", err)
	}
	if len(data) == 0 {
		return nil, Integration(t, "renderer returned an empty document", nil)
	}
	return data, nil
}

// CheckCustomer verifies the customer fields the issuing authority for t needs.
func CheckCustomer(t model.CertificateType, c model.Customer) error {
	var missing []string
	if c.CPF == nil || strings.TrimSpace(*c.CPF) == "" {
		missing = append(missing, "cpf")
	}
	if strings.TrimSpace(c.FullName) == "" {
		missing = append(missing, "full_name")
	}

	switch t {
	case model.CertTypeFederalPolice, model.CertTypeStatePolice:
		if c.BirthDate == nil {
			missing = append(missing, "birth_date")
		}
		if c.MotherName == nil || strings.TrimSpace(*c.MotherName) == "" {
			missing = append(missing, "mother_name")
		}
	}

	if len(missing) > 0 {
		return Precondition(t, "customer %d is missing %s", c.ID, strings.Join(missing, ", "))
	}
	return nil
}
