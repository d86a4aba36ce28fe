// Package configurator wires the product-design wizard: account
// identification with optional code verification, product line selection,
// visual style with its dependent color step, an optional icon picker, the
// line-specific formula step, and the naming/claims/packaging tail ending in
// a review screen. It is both the shipped flow and the reference for wiring
// flows in Go instead of YAML.
package configurator

import (
	"context"
	"fmt"

	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/ports"
	"github.com/florelab/stepwise/pkg/registry"
	"github.com/florelab/stepwise/pkg/schema"
)

// Step identifiers, exported so tooling and tests can address the graph.
const (
	StepEmail       domain.StepID = "email"
	StepVerifyCode  domain.StepID = "verifyCode"
	StepNewUser     domain.StepID = "newUser"
	StepProductLine domain.StepID = "productLine"
	StepStyle       domain.StepID = "style"
	StepPalette     domain.StepID = "paletteColor"
	StepCustomColor domain.StepID = "customColor"
	StepIconChoice  domain.StepID = "iconChoice"
	StepIconPicker  domain.StepID = "iconPicker"
	StepSerumBlend  domain.StepID = "serumBlend"
	StepCreamBase   domain.StepID = "creamBase"
	StepNaming      domain.StepID = "naming"
	StepClaims      domain.StepID = "claims"
	StepPackaging   domain.StepID = "packaging"
	StepReview      domain.StepID = "review"
	StepDone        domain.StepID = "done"
)

// FlagExistingUser is set after the email step: true when the verification
// collaborator sent a code, meaning the address belongs to a known account.
const FlagExistingUser = "isExistingUser"

// Choice values referenced by branch predicates.
const (
	LineSerum = "serum"
	LineCream = "cream"

	StylePalette = "palette"
	StyleCustom  = "custom"

	IconWith    = "withIcon"
	IconWithout = "withoutIcon"
)

// oneOf builds a validator accepting exactly the listed values.
func oneOf(name string, options ...string) schema.Type {
	return schema.Custom(name, func(value any) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		for _, opt := range options {
			if s == opt {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", options)
	})
}

func isExistingUser(a domain.AnswerSet) bool { return a.Bool(FlagExistingUser) }

// New builds the full product-design step graph. The verifier backs the
// email and code steps; everything else is pure answer-set routing.
func New(verifier ports.CodeVerifier) *registry.Registry {
	reg := registry.New(StepEmail)

	reg.MustAdd(registry.Step{
		ID:     StepEmail,
		Title:  "Your email",
		Schema: schema.Schema{"email": schema.Email()},
		OnAdvance: func(ctx context.Context, answers domain.AnswerSet) (domain.AnswerSet, domain.FlowFlags, error) {
			sent, err := verifier.RequestCode(ctx, answers.String("email"))
			if err != nil {
				return nil, nil, fmt.Errorf("request verification code: %w", err)
			}
			return nil, domain.FlowFlags{FlagExistingUser: sent}, nil
		},
		Next: func(a domain.AnswerSet) domain.StepID {
			if isExistingUser(a) {
				return StepVerifyCode
			}
			return StepNewUser
		},
		Branches: []domain.StepID{StepVerifyCode, StepNewUser},
	})

	reg.MustAdd(registry.Step{
		ID:        StepVerifyCode,
		Title:     "Enter the code we sent you",
		Schema:    schema.Schema{"verificationCode": schema.String()},
		Reachable: isExistingUser,
		OnAdvance: func(ctx context.Context, answers domain.AnswerSet) (domain.AnswerSet, domain.FlowFlags, error) {
			ok, err := verifier.VerifyCode(ctx, answers.String("email"), answers.String("verificationCode"))
			if err != nil {
				return nil, nil, fmt.Errorf("verify code: %w", err)
			}
			if !ok {
				return nil, nil, &domain.ValidationError{
					Step: StepVerifyCode,
					Fields: []domain.FieldError{
						{Field: "verificationCode", Reason: "code does not match"},
					},
				}
			}
			return nil, nil, nil
		},
		Next:     func(domain.AnswerSet) domain.StepID { return StepProductLine },
		Branches: []domain.StepID{StepProductLine},
	})

	reg.MustAdd(registry.Step{
		ID:    StepNewUser,
		Title: "Tell us about yourself",
		Schema: schema.Schema{
			"firstName": schema.String(),
			"lastName":  schema.String(),
			"phone":     schema.Optional(schema.Phone()),
		},
		Reachable: func(a domain.AnswerSet) bool { return !isExistingUser(a) },
		Next:      func(domain.AnswerSet) domain.StepID { return StepProductLine },
		Branches:  []domain.StepID{StepProductLine},
	})

	reg.MustAdd(registry.Step{
		ID:       StepProductLine,
		Title:    "Pick a product line",
		Schema:   schema.Schema{"productLine": oneOf("productLine", LineSerum, LineCream)},
		Next:     func(domain.AnswerSet) domain.StepID { return StepStyle },
		Branches: []domain.StepID{StepStyle},
	})

	reg.MustAdd(registry.Step{
		ID:     StepStyle,
		Title:  "Label style",
		Schema: schema.Schema{"styleChoice": oneOf("styleChoice", StylePalette, StyleCustom)},
		Next: func(a domain.AnswerSet) domain.StepID {
			if a.String("styleChoice") == StyleCustom {
				return StepCustomColor
			}
			return StepPalette
		},
		Branches: []domain.StepID{StepPalette, StepCustomColor},
	})

	reg.MustAdd(registry.Step{
		ID:        StepPalette,
		Title:     "Pick a palette color",
		Schema:    schema.Schema{"paletteColor": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("styleChoice") == StylePalette },
		Next:      func(domain.AnswerSet) domain.StepID { return StepIconChoice },
		Branches:  []domain.StepID{StepIconChoice},
	})

	reg.MustAdd(registry.Step{
		ID:        StepCustomColor,
		Title:     "Enter a custom color",
		Schema:    schema.Schema{"colorHex": schema.Custom("hexColor", validateHexColor)},
		Reachable: func(a domain.AnswerSet) bool { return a.String("styleChoice") == StyleCustom },
		Next:      func(domain.AnswerSet) domain.StepID { return StepIconChoice },
		Branches:  []domain.StepID{StepIconChoice},
	})

	// The icon choice always branches to the picker; the picker skips itself
	// when no icon was requested, so the engine lands on the formula step in
	// a single transition.
	reg.MustAdd(registry.Step{
		ID:       StepIconChoice,
		Title:    "Icon on the label?",
		Schema:   schema.Schema{"iconChoice": oneOf("iconChoice", IconWith, IconWithout)},
		Next:     func(domain.AnswerSet) domain.StepID { return StepIconPicker },
		Branches: []domain.StepID{StepIconPicker},
	})

	formulaStep := func(a domain.AnswerSet) domain.StepID {
		if a.String("productLine") == LineCream {
			return StepCreamBase
		}
		return StepSerumBlend
	}

	reg.MustAdd(registry.Step{
		ID:        StepIconPicker,
		Title:     "Pick an icon",
		Schema:    schema.Schema{"icon": schema.String()},
		SkipIf:    func(a domain.AnswerSet) bool { return a.String("iconChoice") == IconWithout },
		Reachable: func(a domain.AnswerSet) bool { return a.String("iconChoice") == IconWith },
		Next:      formulaStep,
		Branches:  []domain.StepID{StepSerumBlend, StepCreamBase},
	})

	reg.MustAdd(registry.Step{
		ID:        StepSerumBlend,
		Title:     "Choose your serum actives",
		Schema:    schema.Schema{"actives": schema.Slice(schema.String())},
		Reachable: func(a domain.AnswerSet) bool { return a.String("productLine") == LineSerum },
		Next:      func(domain.AnswerSet) domain.StepID { return StepNaming },
		Branches:  []domain.StepID{StepNaming},
	})

	reg.MustAdd(registry.Step{
		ID:        StepCreamBase,
		Title:     "Choose your cream base",
		Schema:    schema.Schema{"baseTexture": oneOf("baseTexture", "light", "rich", "balm")},
		Reachable: func(a domain.AnswerSet) bool { return a.String("productLine") == LineCream },
		Next:      func(domain.AnswerSet) domain.StepID { return StepNaming },
		Branches:  []domain.StepID{StepNaming},
	})

	reg.MustAdd(registry.Step{
		ID:       StepNaming,
		Title:    "Name your product",
		Schema:   schema.Schema{"productName": schema.String()},
		Next:     func(domain.AnswerSet) domain.StepID { return StepClaims },
		Branches: []domain.StepID{StepClaims},
	})

	reg.MustAdd(registry.Step{
		ID:       StepClaims,
		Title:    "Marketing claims (optional)",
		Schema:   schema.Schema{"claims": schema.Optional(schema.Slice(schema.String()))},
		Next:     func(domain.AnswerSet) domain.StepID { return StepPackaging },
		Branches: []domain.StepID{StepPackaging},
	})

	reg.MustAdd(registry.Step{
		ID:       StepPackaging,
		Title:    "Packaging",
		Schema:   schema.Schema{"packaging": oneOf("packaging", "glass", "airless", "tube")},
		Next:     func(domain.AnswerSet) domain.StepID { return StepReview },
		Branches: []domain.StepID{StepReview},
	})

	reg.MustAdd(registry.Step{
		ID:         StepReview,
		Title:      "Review your design",
		NoValidate: true,
		Next:       func(domain.AnswerSet) domain.StepID { return StepDone },
		Branches:   []domain.StepID{StepDone},
	})

	reg.MustAdd(registry.Step{
		ID:         StepDone,
		Title:      "All set!",
		NoValidate: true,
	})

	return reg
}

func validateHexColor(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if len(s) != 7 || s[0] != '#' {
		return fmt.Errorf("must look like #RRGGBB")
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return fmt.Errorf("must look like #RRGGBB")
		}
	}
	return nil
}
