// Package instruct converts unstructured text produced by a generation
// backend into structured, typed data that conforms to a caller-declared
// schema. When the backend output does not satisfy the schema, the engine
// feeds the validation findings back into the next prompt and retries until
// the output validates or a bounded number of attempts is exhausted.
//
// # Problem Statement
//
// AI models produce free text. Callers need contracts: a response that is
// guaranteed to carry the declared fields with the declared types, or a
// precise account of why it could not. Hand-rolled parsing of model output
// is brittle, and a single bad response should be a correction round, not a
// failure. The instruct package provides:
//
//   - Declared schemas: fields, types, descriptions, optionality and enums,
//     declared statically, assembled at runtime, or inferred from Go structs
//   - Deterministic compilation: every schema renders to the same portable
//     JSON-Schema shape and the same prompt text, byte for byte
//   - Faithful validation: no numeric coercion, per-element array findings,
//     nested error paths, optional strict rejection of unknown fields
//   - Bounded correction: validation findings become feedback for the next
//     attempt, with separate budgets for model retries and transient
//     backend failures
//
// # Basic Usage
//
// Declare a schema, wrap a backend, and extract:
//
//	schema := instruct.MustSchema("User", "a user profile", []instruct.FieldSpec{
//	    instruct.Field("name", instruct.StringType(), "full name"),
//	    instruct.Field("age", instruct.IntegerType(), "age in years"),
//	    instruct.OptionalField("email", instruct.StringType(), "contact email", nil),
//	})
//
//	client, _ := genai.NewClient(ctx, nil)
//	x := instruct.New(instruct.NewGenaiBackend(client, nil))
//
//	res, err := x.ExtractText(ctx, schema, "Ann is 30, reach her at ann@example.com",
//	    instruct.WithModel("gemini-1.5-pro"),
//	    instruct.WithMaxAttempts(3),
//	)
//	if err != nil {
//	    var exhausted *instruct.ExhaustedError
//	    if errors.As(err, &exhausted) {
//	        // full attempt history with per-field findings
//	    }
//	    return err
//	}
//	name, _ := res.Value.String("name")
//
// # Dynamic Schemas
//
// Schemas can be assembled at runtime from external metadata, optionally
// merging into a base schema:
//
//	schema, err := instruct.NewBuilder("Ticket").
//	    Base(baseSchema).
//	    Override().
//	    Add("priority", instruct.StringType(), "ticket priority", true, nil).
//	    Build()
//
// Or inferred from a struct type:
//
//	type Query struct {
//	    Text string `json:"text" description:"search text"`
//	    Kind string `json:"kind" enum:"web,image,video"`
//	}
//	schema, err := instruct.SchemaOf[Query]()
//
// # Retry Semantics
//
// One extraction call is a sequence of attempts. Each attempt invokes the
// backend, validates the raw output, and on failure serializes the findings
// into a feedback block for the next prompt. Only the most recent attempt's
// feedback is carried forward, keeping prompts bounded; the full history is
// retained on the Result. Transient backend failures are retried on their
// own budget with exponential backoff and surface as a BackendError when
// spent. Caller deadlines are honored between attempts.
//
// # Concurrency
//
// A single extraction is sequential by nature: attempt N+1 depends on
// attempt N's findings. Independent extractions share no mutable state
// except the schema-compilation cache, which is compute-once per schema
// fingerprint, so an Instructor is safe for concurrent use. ExtractBatch
// fans one schema out over many documents via the Runner abstraction.
package instruct
