// Package config reads model definitions from YAML and registers them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	records "github.com/goliatone/go-records"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoModels        = errors.New("config: no models defined")
	ErrUnknownType     = errors.New("config: unknown field type")
	ErrUnknownMethod   = errors.New("config: unsupported http method")
	ErrUnknownOp       = errors.New("config: unknown operation")
	ErrEmptyModelName  = errors.New("config: empty model name")
	ErrControllerNoURL = errors.New("config: controller operation without url")
)

// File is the root document.
type File struct {
	BaseURL  string           `yaml:"base_url"`
	Defaults Operation        `yaml:"defaults"`
	Models   map[string]Model `yaml:"models"`
}

// Operation mirrors records.OperationConfig. Function-valued settings have
// no YAML form.
type Operation struct {
	URL     string         `yaml:"url"`
	Method  string         `yaml:"method"`
	Extra   map[string]any `yaml:"extra"`
	ID      string         `yaml:"id"`
	Data    string         `yaml:"data"`
	Root    string         `yaml:"root"`
	Total   string         `yaml:"total"`
	Success string         `yaml:"success"`
	JSON    *bool          `yaml:"json"`
}

// Profile mirrors records.Profile.
type Profile struct {
	Operation      `yaml:",inline"`
	Ops            map[string]Operation `yaml:"ops"`
	ImportOnCreate *bool                `yaml:"import_on_create"`
	ImportOnSave   *bool                `yaml:"import_on_save"`
	StartParam     string               `yaml:"start_param"`
	LimitParam     string               `yaml:"limit_param"`
}

// Field mirrors records.Field.
type Field struct {
	Type   string `yaml:"type"`
	Format string `yaml:"format"`
}

// Model is one entity definition.
type Model struct {
	Fields     map[string]Field     `yaml:"fields"`
	Defaults   Operation            `yaml:"defaults"`
	Record     Profile              `yaml:"record"`
	Store      Profile              `yaml:"store"`
	Controller map[string]Operation `yaml:"controller"`
}

var knownOps = map[string]struct{}{
	records.OpLoad:   {},
	records.OpSave:   {},
	records.OpDelete: {},
}

var knownMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks field types, methods and operation names.
func (f *File) Validate() error {
	if len(f.Models) == 0 {
		return ErrNoModels
	}
	if err := f.Defaults.validate("defaults"); err != nil {
		return err
	}
	for _, name := range f.Names() {
		if strings.TrimSpace(name) == "" {
			return ErrEmptyModelName
		}
		def := f.Models[name]
		for fieldName, field := range def.Fields {
			if !validFieldType(field.Type) {
				return fmt.Errorf("%w %q for %s.%s", ErrUnknownType, field.Type, name, fieldName)
			}
		}
		if err := def.Defaults.validate(name + ".defaults"); err != nil {
			return err
		}
		for scope, profile := range map[string]Profile{"record": def.Record, "store": def.Store} {
			if err := profile.validate(name + "." + scope); err != nil {
				return err
			}
		}
		for op, cfg := range def.Controller {
			if cfg.URL == "" {
				return fmt.Errorf("%w: %s.controller.%s", ErrControllerNoURL, name, op)
			}
			if err := cfg.validate(name + ".controller." + op); err != nil {
				return err
			}
		}
	}
	return nil
}

// Names lists the model names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Models))
	for name := range f.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options converts the model name into records options. File-level defaults
// fill the settings the model's own defaults leave empty.
func (f *File) Options(name string) ([]records.ModelOption, error) {
	def, ok := f.Models[name]
	if !ok {
		return nil, fmt.Errorf("config: model %q not defined", name)
	}
	opts := []records.ModelOption{
		records.WithDefaults(f.Defaults.merge(def.Defaults).config()),
		records.WithRecordProfile(def.Record.profile()),
		records.WithStoreProfile(def.Store.profile()),
	}
	for fieldName, field := range def.Fields {
		opts = append(opts, records.WithField(fieldName, records.Field{
			Type:   records.ParseFieldType(field.Type),
			Format: field.Format,
		}))
	}
	for op, cfg := range def.Controller {
		opts = append(opts, records.WithControllerOp(op, cfg.config()))
	}
	return opts, nil
}

// Apply defines every model on reg. extra options run after the file's and
// typically carry the transport.
func (f *File) Apply(reg *records.Registry, extra ...records.ModelOption) ([]*records.Model, error) {
	models := make([]*records.Model, 0, len(f.Models))
	for _, name := range f.Names() {
		opts, err := f.Options(name)
		if err != nil {
			return nil, err
		}
		models = append(models, reg.Define(name, append(opts, extra...)...))
	}
	return models, nil
}

func (o Operation) validate(path string) error {
	if o.Method == "" {
		return nil
	}
	if _, ok := knownMethods[strings.ToUpper(o.Method)]; !ok {
		return fmt.Errorf("%w %q at %s", ErrUnknownMethod, o.Method, path)
	}
	return nil
}

func (p Profile) validate(path string) error {
	if err := p.Operation.validate(path); err != nil {
		return err
	}
	for op, cfg := range p.Ops {
		if _, ok := knownOps[op]; !ok {
			return fmt.Errorf("%w %q at %s", ErrUnknownOp, op, path)
		}
		if err := cfg.validate(path + ".ops." + op); err != nil {
			return err
		}
	}
	return nil
}

// merge layers over on top of o; settings over leaves empty keep o's value.
func (o Operation) merge(over Operation) Operation {
	out := o
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&out.URL, over.URL)
	pick(&out.Method, over.Method)
	pick(&out.ID, over.ID)
	pick(&out.Data, over.Data)
	pick(&out.Root, over.Root)
	pick(&out.Total, over.Total)
	pick(&out.Success, over.Success)
	if over.JSON != nil {
		out.JSON = over.JSON
	}
	if len(over.Extra) > 0 {
		extra := make(map[string]any, len(o.Extra)+len(over.Extra))
		for k, v := range o.Extra {
			extra[k] = v
		}
		for k, v := range over.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}
	return out
}

func (o Operation) config() records.OperationConfig {
	return records.OperationConfig{
		URL:         o.URL,
		Method:      strings.ToUpper(o.Method),
		Extra:       o.Extra,
		IDProp:      o.ID,
		DataProp:    o.Data,
		RootProp:    o.Root,
		TotalProp:   o.Total,
		SuccessProp: o.Success,
		JSON:        o.JSON,
	}
}

func (p Profile) profile() records.Profile {
	out := records.Profile{
		OperationConfig: p.Operation.config(),
		ImportOnCreate:  p.ImportOnCreate,
		ImportOnSave:    p.ImportOnSave,
		StartParam:      p.StartParam,
		LimitParam:      p.LimitParam,
	}
	if len(p.Ops) > 0 {
		out.Ops = make(map[string]records.OperationConfig, len(p.Ops))
		for op, cfg := range p.Ops {
			out.Ops[op] = cfg.config()
		}
	}
	return out
}

func validFieldType(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "any":
		return true
	}
	return records.ParseFieldType(name) != records.FieldAny
}
