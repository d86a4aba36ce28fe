package stepwise_test

import (
	"context"
	"fmt"
	"log"

	"github.com/florelab/stepwise"
	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/registry"
	"github.com/florelab/stepwise/pkg/schema"
)

// ExampleNew demonstrates building a small branching wizard in pure Go and
// walking it to completion.
func ExampleNew() {
	// 1. Define the step graph. Each step owns its fields and declares
	// where it can go next.
	reg := registry.New("pet")
	reg.MustAdd(registry.Step{
		ID:     "pet",
		Title:  "Cat or dog?",
		Schema: schema.Schema{"pet": schema.String()},
		Next: func(a domain.AnswerSet) domain.StepID {
			if a.String("pet") == "cat" {
				return "catName"
			}
			return "dogName"
		},
		Branches: []domain.StepID{"catName", "dogName"},
	})
	reg.MustAdd(registry.Step{
		ID:        "catName",
		Schema:    schema.Schema{"name": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("pet") == "cat" },
		Next:      func(domain.AnswerSet) domain.StepID { return "done" },
		Branches:  []domain.StepID{"done"},
	})
	reg.MustAdd(registry.Step{
		ID:        "dogName",
		Schema:    schema.Schema{"name": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("pet") != "cat" },
		Next:      func(domain.AnswerSet) domain.StepID { return "done" },
		Branches:  []domain.StepID{"done"},
	})
	reg.MustAdd(registry.Step{ID: "done", NoValidate: true})

	// 2. Build a wizard for one session and start it.
	wiz, err := stepwise.New(reg, "example-session")
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	state, err := wiz.Start(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("at:", state.Current)

	// 3. Answer the steps. The branch function routes on the answers.
	state, err = wiz.Advance(ctx, domain.AnswerSet{"pet": "cat"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("at:", state.Current)

	if _, err = wiz.Advance(ctx, domain.AnswerSet{"name": "Miso"}); err != nil {
		log.Fatal(err)
	}
	if _, err = wiz.Advance(ctx, nil); err != nil {
		log.Fatal(err)
	}
	fmt.Println("completed:", wiz.Completed())
	// Output:
	// at: pet
	// at: catName
	// completed: true
}

// ExampleWizard_Record shows decoding the answer set onto a tagged struct,
// with answers from abandoned branches pruned away.
func ExampleWizard_Record() {
	reg := registry.New("pick")
	reg.MustAdd(registry.Step{
		ID:     "pick",
		Schema: schema.Schema{"flavor": schema.String()},
		Next:   func(domain.AnswerSet) domain.StepID { return "done" },
		Branches: []domain.StepID{
			"done",
		},
	})
	reg.MustAdd(registry.Step{ID: "done", NoValidate: true})

	wiz, err := stepwise.New(reg, "example-session")
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	if _, err = wiz.Start(ctx); err != nil {
		log.Fatal(err)
	}
	if _, err = wiz.Advance(ctx, domain.AnswerSet{"flavor": "yuzu"}); err != nil {
		log.Fatal(err)
	}

	var out struct {
		Flavor string `answer:"flavor"`
	}
	if err := wiz.Record(&out); err != nil {
		log.Fatal(err)
	}
	fmt.Println(out.Flavor)
	// Output:
	// yuzu
}
