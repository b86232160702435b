package buildfile

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (

	// File name looked for at the project root.
	Filename = "slipway.yaml"

	// Buildfile schema version this daemon understands.
	SupportedVersion = 1
)

// Defaults applied to omitted fields.
const (
	defaultApp       = "app.main:app"
	defaultPort      = 8000
	defaultBind      = "0.0.0.0"
	defaultServer    = "uvicorn"
	defaultWorkdir   = "/app"
	defaultManifest  = "pyproject.toml"
	defaultLockfile  = "uv.lock"
	defaultEnvDir    = ".venv"
	defaultInstaller = "uv sync --frozen"
	defaultUserName  = "app"
	defaultUserID    = 1000
)

// Mirrors the YAML document. Field presence is resolved into [File] by
// applyDefaults.
type document struct {
	Version     int            `yaml:"version"`
	Service     serviceDTO     `yaml:"service"`
	Build       buildDTO       `yaml:"build"`
	Environment environmentDTO `yaml:"environment"`
	Runtime     runtimeDTO     `yaml:"runtime"`
}

type serviceDTO struct {
	Name    string   `yaml:"name"`
	App     string   `yaml:"app"`
	Port    int      `yaml:"port"`
	Bind    string   `yaml:"bind"`
	Command []string `yaml:"command"`
}

type buildDTO struct {
	From     string `yaml:"from"`
	Workdir  string `yaml:"workdir"`
	Manifest string `yaml:"manifest"`
	Lockfile string `yaml:"lockfile"`
}

type environmentDTO struct {
	Dir       string `yaml:"dir"`
	Installer string `yaml:"installer"`
}

type runtimeDTO struct {
	From string  `yaml:"from"`
	User userDTO `yaml:"user"`
}

type userDTO struct {
	Name      string `yaml:"name"`
	UID       int    `yaml:"uid"`
	GID       int    `yaml:"gid"`
	Provision string `yaml:"provision"`
}

// Holds a validated build configuration with all defaults applied and all
// paths resolved against the project root.
type File struct {
	Root        string // Absolute project root.
	Service     Service
	Build       Build
	Environment Environment
	Runtime     Runtime
}

// Describes the service the image will launch.
type Service struct {
	Name    string   // Image-friendly service name.
	App     string   // ASGI application path ("module:attribute").
	Port    int      // Port the service listens on.
	Bind    string   // Interface the default command binds to.
	Command []string // Full launch command override, if any.
}

// Describes the builder stage inputs.
type Build struct {
	From     string // Absolute path to the builder base OCI archive.
	Workdir  string // Application directory inside the image.
	Manifest string // Absolute path to the dependency manifest.
	Lockfile string // Absolute path to the lockfile.
}

// Describes the dependency environment.
type Environment struct {
	Dir       string // Environment directory, relative to the workdir.
	Installer string // Shell command that materializes the environment.
}

// Describes the runtime stage inputs.
type Runtime struct {
	From string // Absolute path to the runtime base OCI archive.
	User User
}

// Describes the unprivileged account the service runs as.
type User struct {
	Name      string // Account name.
	UID       int    // Numeric user ID.
	GID       int    // Numeric group ID.
	Provision string // Custom account-creation command, if the base has no useradd.
}

// Reads, defaults, and validates the buildfile under root.
func Load(root string) (*File, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve project root")
	}

	raw, err := os.ReadFile(filepath.Join(abs, Filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(ErrBuildfileMissing, "root", abs)
		}
		return nil, zerr.Wrap(err, "failed to read buildfile")
	}

	return Parse(raw, abs)
}

// Parses raw buildfile content against the given project root.
func Parse(raw []byte, root string) (*File, error) {
	var doc document

	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Join(ErrBuildfileMalformed, err)
	}

	f := applyDefaults(&doc, root)
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Fills omitted fields and resolves relative paths against root.
func applyDefaults(doc *document, root string) *File {
	f := &File{
		Root: root,
		Service: Service{
			Name:    doc.Service.Name,
			App:     doc.Service.App,
			Port:    doc.Service.Port,
			Bind:    doc.Service.Bind,
			Command: doc.Service.Command,
		},
		Build: Build{
			From:     doc.Build.From,
			Workdir:  doc.Build.Workdir,
			Manifest: doc.Build.Manifest,
			Lockfile: doc.Build.Lockfile,
		},
		Environment: Environment{
			Dir:       doc.Environment.Dir,
			Installer: doc.Environment.Installer,
		},
		Runtime: Runtime{
			From: doc.Runtime.From,
			User: User{
				Name:      doc.Runtime.User.Name,
				UID:       doc.Runtime.User.UID,
				GID:       doc.Runtime.User.GID,
				Provision: doc.Runtime.User.Provision,
			},
		},
	}

	if f.Service.Name == "" {
		f.Service.Name = serviceName(root)
	}
	if f.Service.App == "" {
		f.Service.App = defaultApp
	}
	if f.Service.Port == 0 {
		f.Service.Port = defaultPort
	}
	if f.Service.Bind == "" {
		f.Service.Bind = defaultBind
	}

	if f.Build.Workdir == "" {
		f.Build.Workdir = defaultWorkdir
	}
	if f.Build.Manifest == "" {
		f.Build.Manifest = defaultManifest
	}
	if f.Build.Lockfile == "" {
		f.Build.Lockfile = defaultLockfile
	}

	if f.Environment.Dir == "" {
		f.Environment.Dir = defaultEnvDir
	}
	if f.Environment.Installer == "" {
		f.Environment.Installer = defaultInstaller
	}

	if f.Runtime.User.Name == "" {
		f.Runtime.User.Name = defaultUserName
	}
	if f.Runtime.User.UID == 0 {
		f.Runtime.User.UID = defaultUserID
	}
	if f.Runtime.User.GID == 0 {
		f.Runtime.User.GID = f.Runtime.User.UID
	}

	f.Build.From = resolve(root, f.Build.From)
	f.Build.Manifest = resolve(root, f.Build.Manifest)
	f.Build.Lockfile = resolve(root, f.Build.Lockfile)
	f.Runtime.From = resolve(root, f.Runtime.From)

	return f
}

// Checks structural constraints. The referenced files are read later by the
// pipeline, which reports their own missing/malformed states.
func (f *File) validate() error {
	invalid := func(reason string) error {
		return zerr.With(ErrBuildfileInvalid, "reason", reason)
	}

	if f.Service.Port < 1 || f.Service.Port > 65535 {
		return invalid("service port out of range")
	}
	if len(f.Service.Command) == 0 && !strings.Contains(f.Service.App, ":") {
		return invalid("service app must be of the form module:attribute")
	}
	if f.Build.From == "" {
		return invalid("build image archive is required")
	}
	if f.Runtime.From == "" {
		return invalid("runtime image archive is required")
	}
	if !path.IsAbs(f.Build.Workdir) {
		return invalid("workdir must be absolute")
	}
	if path.IsAbs(f.Environment.Dir) || strings.Contains(f.Environment.Dir, "..") {
		return invalid("environment dir must be a relative path inside the workdir")
	}
	if f.Runtime.User.Name == "" || f.Runtime.User.Name == "root" {
		return invalid("runtime user must be an unprivileged account")
	}
	if f.Runtime.User.UID <= 0 || f.Runtime.User.GID <= 0 {
		return invalid("runtime uid and gid must be positive")
	}
	return nil
}

// Path of the dependency environment directory inside the image.
func (f *File) EnvDir() string {
	return path.Join(f.Build.Workdir, f.Environment.Dir)
}

// Path of the dependency environment's executable directory inside the
// image.
func (f *File) EnvBinDir() string {
	return path.Join(f.EnvDir(), "bin")
}

// The command the image runs by default.
//
// An explicit service command wins; otherwise the conventional ASGI server
// invocation is synthesized. The command is declarative image metadata, so
// an orchestration layer can override it at container start.
func (s Service) LaunchCommand() []string {
	if len(s.Command) > 0 {
		return append([]string(nil), s.Command...)
	}
	return []string{
		defaultServer, s.App,
		"--host", s.Bind,
		"--port", strconv.Itoa(s.Port),
	}
}

// The exposed-port key recorded in the image config.
func (s Service) PortSpec() string {
	return strconv.Itoa(s.Port) + "/tcp"
}

// Derives an image-friendly service name from the project directory.
func serviceName(root string) string {
	base := strings.ToLower(filepath.Base(root))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "service"
	}
	return name
}

// Resolves p against root unless it is already absolute or empty.
func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
