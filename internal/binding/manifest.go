package binding

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/woxQAQ/narrowcall/internal/decl"
	"github.com/woxQAQ/narrowcall/internal/gen"
	"github.com/woxQAQ/narrowcall/pkg/codec"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest file name looked up in binding directories.
const ManifestFile = "narrowcall.yaml"

// Manifest represents the narrowcall.yaml structure.
type Manifest struct {
	Name    string `yaml:"name" json:"name" validate:"required,goident" jsonschema:"description=Binding name; prefixes the generated file names"`
	Package string `yaml:"package" json:"package" validate:"required,goident" jsonschema:"description=Go package of the generated files"`

	Module string `yaml:"module,omitempty" json:"module,omitempty" validate:"omitempty,printascii" jsonschema:"description=Wasm import module (default env)"`
	Mode   string `yaml:"mode,omitempty" json:"mode,omitempty" validate:"omitempty,oneof=single keyed" jsonschema:"enum=single,enum=keyed"`
	Codec  string `yaml:"codec,omitempty" json:"codec,omitempty" validate:"omitempty,oneof=binary json" jsonschema:"enum=binary,enum=json"`
	Width  int    `yaml:"width,omitempty" json:"width,omitempty" validate:"omitempty,oneof=8 16 32 64" jsonschema:"enum=8,enum=16,enum=32,enum=64,description=Length-prefix width in bits"`

	Sources   []string   `yaml:"sources,omitempty" json:"sources,omitempty" validate:"required_without=Functions,dive,required" jsonschema:"description=Go files scanned for declarations relative to the manifest"`
	Functions []Function `yaml:"functions,omitempty" json:"functions,omitempty" validate:"required_without=Sources,dive"`

	Transparent map[string]string `yaml:"transparent,omitempty" json:"transparent,omitempty" validate:"dive,keys,goident,endkeys,required" jsonschema:"description=Named types mapped to their scalar underlying type"`
	Imports     map[string]string `yaml:"imports,omitempty" json:"imports,omitempty" validate:"dive,keys,goident,endkeys,required" jsonschema:"description=Package names used in result types mapped to import paths"`

	Output OutputConfig `yaml:"output,omitempty" json:"output,omitempty"`
	Wasm   WasmConfig   `yaml:"wasm,omitempty" json:"wasm,omitempty"`

	// Internal fields
	dir string // Directory containing manifest
}

// Function is a declaration written inline in the manifest.
type Function struct {
	Name    string       `yaml:"name" json:"name" validate:"required"`
	Params  []decl.Param `yaml:"params,omitempty" json:"params,omitempty" validate:"dive"`
	Returns string       `yaml:"returns,omitempty" json:"returns,omitempty" jsonschema:"description=Result type; functions without one are skipped"`
	Doc     string       `yaml:"doc,omitempty" json:"doc,omitempty"`
}

// OutputConfig locates the generated files.
type OutputConfig struct {
	Dir   string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Host  string `yaml:"host,omitempty" json:"host,omitempty" validate:"omitempty,endswith=.go"`
	Guest string `yaml:"guest,omitempty" json:"guest,omitempty" validate:"omitempty,endswith=.go"`
}

// WasmConfig references a compiled guest module.
type WasmConfig struct {
	File string `yaml:"file,omitempty" json:"file,omitempty" validate:"omitempty,endswith=.wasm"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("goident", func(fl validator.FieldLevel) bool {
		return token.IsIdentifier(fl.Field().String())
	})
	return v
}

// ParseManifest reads and parses narrowcall.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m, err := DecodeManifest(data)
	if err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	// Validate manifest
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// DecodeManifest decodes manifest YAML without validating it. Unknown
// fields are rejected.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return &ManifestValidationError{Path: m.Path(), Message: err.Error()}
		}
		fe := verrs[0]
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   fieldPath(fe),
			Message: message(fe),
		}
	}

	if err := m.checkOutputs(); err != nil {
		return err
	}

	// Validate Wasm file exists
	if m.Wasm.File != "" {
		if _, err := os.Stat(m.WasmPath()); os.IsNotExist(err) {
			return &WasmNotFoundError{
				ManifestPath: m.Path(),
				WasmFile:     m.Wasm.File,
			}
		}
	}

	return nil
}

func (m *Manifest) checkOutputs() error {
	if m.HostFile() == m.GuestFile() {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "output",
			Message: "host and guest files must differ",
		}
	}
	for _, src := range m.Sources {
		if src == m.HostFile() || src == m.GuestFile() {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "sources",
				Message: fmt.Sprintf("source %s would be overwritten by generation", src),
			}
		}
	}
	return nil
}

// fieldPath turns "Manifest.functions[0].name" into "functions[0].name".
func fieldPath(fe validator.FieldError) string {
	_, rest, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return rest
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", fe.Field(), strings.ToLower(fe.Param()))
	case "oneof":
		return fmt.Sprintf("unsupported %s: %v (must be one of: %s)", fe.Field(), fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "goident":
		return fmt.Sprintf("%q is not a Go identifier", fe.Value())
	case "endswith":
		return fmt.Sprintf("%s must end in %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed '%s' validation", fe.Field(), fe.Tag())
	}
}

// Declarations returns the inline functions as declarations, in manifest
// order, and the transparent types they may use.
func (m *Manifest) Declarations() ([]decl.Declaration, *decl.TypeTable, error) {
	types, err := m.typeTable()
	if err != nil {
		return nil, nil, &ManifestValidationError{Path: m.Path(), Field: "transparent", Message: err.Error()}
	}

	decls := make([]decl.Declaration, 0, len(m.Functions))
	for i, fn := range m.Functions {
		d := decl.Declaration{
			Name:   fn.Name,
			Params: fn.Params,
			Doc:    fn.Doc,
			Pos:    fmt.Sprintf("%s:functions[%d]", ManifestFile, i),
		}
		if fn.Returns != "" {
			d.Results = []string{fn.Returns}
		}
		decls = append(decls, d)
	}
	return decls, types, nil
}

// typeTable declares transparent types. Entries may refer to each other,
// so declaration repeats until no entry makes progress.
func (m *Manifest) typeTable() (*decl.TypeTable, error) {
	types := decl.NewTypeTable()
	pending := make([]string, 0, len(m.Transparent))
	for name := range m.Transparent {
		pending = append(pending, name)
	}
	sort.Strings(pending)

	for len(pending) > 0 {
		var next []string
		var lastErr error
		for _, name := range pending {
			if err := types.Declare(name, m.Transparent[name]); err != nil {
				next = append(next, name)
				lastErr = err
			}
		}
		if len(next) == len(pending) {
			return nil, lastErr
		}
		pending = next
	}
	return types, nil
}

// ImportList returns the manifest imports sorted by package name.
func (m *Manifest) ImportList() []decl.Import {
	out := make([]decl.Import, 0, len(m.Imports))
	for name, path := range m.Imports {
		out = append(out, decl.Import{Name: name, Path: path})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Options returns generator options, taking unset fields from defaults.
func (m *Manifest) Options(defaults gen.Options) gen.Options {
	opts := defaults
	opts.Package = m.Package
	if m.Module != "" {
		opts.Module = m.Module
	}
	if m.Mode != "" {
		opts.Mode = protocol.Mode(m.Mode)
	}
	if m.Codec != "" {
		opts.Codec = m.Codec
	}
	if m.Width != 0 {
		if w, err := codec.ParseWidth(m.Width); err == nil {
			opts.Width = w
		}
	}
	return opts
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}

// WasmPath returns the path to the guest module.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// SourcePaths returns the declaration sources relative to the working
// directory.
func (m *Manifest) SourcePaths() []string {
	out := make([]string, len(m.Sources))
	for i, src := range m.Sources {
		out[i] = filepath.Join(m.dir, src)
	}
	return out
}

// HostFile is the file name of the generated host wrappers.
func (m *Manifest) HostFile() string {
	if m.Output.Host != "" {
		return m.Output.Host
	}
	return m.Name + "_host.go"
}

// GuestFile is the file name of the generated guest proxies.
func (m *Manifest) GuestFile() string {
	if m.Output.Guest != "" {
		return m.Output.Guest
	}
	return m.Name + "_guest.go"
}

// OutputDir returns where generated files go. A non-empty override wins
// over the manifest.
func (m *Manifest) OutputDir(override string) string {
	if override != "" {
		return override
	}
	return filepath.Join(m.dir, m.Output.Dir)
}
