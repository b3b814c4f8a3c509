package forms

import (
	"net/url"
	"strings"
)

// ContactForm is the public contact form. Name and Email carry the classic
// required / required+email validators; Body feeds the stored submission.
type ContactForm struct {
	Name  string `schema:"name" validate:"required,max=120"`
	Email string `schema:"email" validate:"required,email,max=254"`
	Body  string `schema:"message" validate:"required,max=4000"`
}

// ParseContactForm decodes and normalises posted contact-form values.
func ParseContactForm(values url.Values) (ContactForm, error) {
	var f ContactForm
	if err := Decode(&f, values); err != nil {
		return ContactForm{}, err
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Body = strings.TrimSpace(f.Body)
	return f, nil
}

// LoginForm is the admin sign-in form.
type LoginForm struct {
	Username string `schema:"username" validate:"required"`
	Password string `schema:"password" validate:"required"`
}

// ParseLoginForm decodes posted login values. The password is deliberately
// left untrimmed.
func ParseLoginForm(values url.Values) (LoginForm, error) {
	var f LoginForm
	if err := Decode(&f, values); err != nil {
		return LoginForm{}, err
	}
	f.Username = strings.TrimSpace(f.Username)
	return f, nil
}
