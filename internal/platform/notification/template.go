// Package notification renders and delivers outbound email such as password
// reset codes.
package notification

import (
	"fmt"
	"strings"
	"sync"
)

const (
	TemplatePasswordReset = "password-reset"
	TemplateWelcome       = "welcome"
)

type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine renders {{key}} placeholders in registered templates.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplatePasswordReset,
			Subject: "SGA - Código de redefinição de senha",
			Body: "Olá {{nome}},\n\n" +
				"Seu código para redefinir a senha é {{codigo}}. " +
				"Ele expira em {{validade}}.\n\n" +
				"Se você não solicitou a redefinição, ignore este email.",
		},
		{
			ID:      TemplateWelcome,
			Subject: "SGA - Sua conta foi criada",
			Body: "Olá {{nome}},\n\n" +
				"Uma conta com o perfil {{perfil}} foi criada para {{email}}. " +
				"Use a opção \"esqueci minha senha\" para definir sua senha.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
