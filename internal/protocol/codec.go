package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://mobwatch.dev/schemas/"

// Validator checks raw messages against the embedded JSON schemas
type Validator struct {
	events  map[string]*jsonschema.Schema
	command *jsonschema.Schema
}

// NewValidator compiles the embedded schemas
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	names := append(append([]string{}, EventTypes...), TypeCommand)
	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
		}
		if err := compiler.AddResource(schemaBase+name+".schema.json", bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
		}
	}

	v := &Validator{events: make(map[string]*jsonschema.Schema, len(EventTypes))}
	for _, name := range names {
		s, err := compiler.Compile(schemaBase + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		if name == TypeCommand {
			v.command = s
		} else {
			v.events[name] = s
		}
	}
	return v, nil
}

var defaultValidator = sync.OnceValues(NewValidator)

// Default returns a shared validator. The schemas are compiled into the
// binary, so failure here means a broken build and panics.
func Default() *Validator {
	v, err := defaultValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// DecodeEvent parses and validates one inbound event
func (v *Validator) DecodeEvent(data []byte) (Event, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Event{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	typ, _ := obj["type"].(string)
	schema, ok := v.events[typ]
	if !ok {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if err := schema.Validate(doc); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ev, nil
}

// ValidateEvent checks an event built in code against its schema
func (v *Validator) ValidateEvent(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = v.DecodeEvent(data)
	return err
}

// DecodeBatch parses a poll response. Entries that fail validation are
// skipped and counted rather than failing the whole batch.
func (v *Validator) DecodeBatch(data []byte) (Batch, error) {
	var raw struct {
		Cursor *uint64           `json:"cursor"`
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Cursor == nil {
		return Batch{}, fmt.Errorf("%w: missing cursor", ErrMalformed)
	}

	batch := Batch{Cursor: *raw.Cursor, Events: make([]Event, 0, len(raw.Events))}
	for _, item := range raw.Events {
		ev, err := v.DecodeEvent(item)
		if err != nil {
			batch.Skipped++
			continue
		}
		batch.Events = append(batch.Events, ev)
	}
	return batch, nil
}

// EncodeCommand validates and serialises an outbound command
func (v *Validator) EncodeCommand(cmd Command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := v.command.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return data, nil
}

// DecodeCommand parses and validates an outbound command, as written to a spool
func (v *Validator) DecodeCommand(data []byte) (Command, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := v.command.Validate(doc); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return cmd, nil
}
