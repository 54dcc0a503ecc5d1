// Package rom packages a program and its resources into an iNES image.
package rom

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"nesgen/pkg/asm"
	"nesgen/pkg/emitter"
	"nesgen/pkg/program"
	"nesgen/pkg/resources"
	"nesgen/pkg/toolchain"
)

// Mapper is the iNES mapper number.
type Mapper uint8

const (
	NROM  Mapper = 0
	MMC1  Mapper = 1
	UNROM Mapper = 2
	CNROM Mapper = 3
	MMC3  Mapper = 4
)

var mapperNames = map[Mapper]string{NROM: "NROM", MMC1: "MMC1", UNROM: "UNROM", CNROM: "CNROM", MMC3: "MMC3"}

func (m Mapper) String() string {
	if n, ok := mapperNames[m]; ok {
		return n
	}
	return fmt.Sprintf("mapper %d", uint8(m))
}

// ParseMapper accepts a mapper name, case-sensitively as printed by String.
func ParseMapper(s string) (Mapper, error) {
	for m, n := range mapperNames {
		if n == s {
			return m, nil
		}
	}
	return 0, errors.Errorf("unknown mapper %q", s)
}

type Mirroring uint8

const (
	Horizontal Mirroring = 0
	Vertical   Mirroring = 1
)

func (m Mirroring) String() string {
	if m == Vertical {
		return "vertical"
	}
	return "horizontal"
}

func ParseMirroring(s string) (Mirroring, error) {
	switch s {
	case "horizontal", "h":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	}
	return 0, errors.Errorf("unknown mirroring %q", s)
}

const (
	// AsmFile and CfgFile are the names EmitAsm writes inside its directory.
	AsmFile = "prg.asm"
	CfgFile = "lnk.cfg"
	ObjFile = "prg.o"
	// OutFile is the image Build writes inside its output directory.
	OutFile = "prg.nes"
)

type Config struct {
	Mapper    Mapper
	Mirroring Mirroring
	Emitter   emitter.Options
}

func DefaultConfig() Config {
	return Config{Mapper: NROM, Mirroring: Horizontal, Emitter: emitter.DefaultOptions()}
}

// Rom ties a program, its resources and the toolchain together.
type Rom struct {
	cfg   Config
	prg   *program.Program
	res   *resources.Resources
	tools *toolchain.Toolchain
	log   logrus.FieldLogger
}

func New(cfg Config, prg *program.Program, res *resources.Resources) *Rom {
	log := cfg.Emitter.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if res == nil {
		res = resources.New()
	}
	return &Rom{cfg: cfg, prg: prg, res: res, log: log}
}

func (r *Rom) SetToolchain(tc *toolchain.Toolchain) { r.tools = tc }
func (r *Rom) Config() Config                       { return r.cfg }

// Header returns the iNES header for two 16 KiB PRG banks and one CHR bank.
func (r *Rom) Header() emitter.Header {
	return emitter.Header{
		PRGBanks: 2,
		CHRBanks: 1,
		Flags6:   uint8(r.cfg.Mapper&0x0F)<<4 | uint8(r.cfg.Mirroring&0x01),
		Flags7:   uint8(r.cfg.Mapper & 0xF0),
	}
}

// Assembly renders the assembly source and the linker configuration.
func (r *Rom) Assembly() (src, cfg []byte, res *emitter.Result, err error) {
	e := emitter.New(r.cfg.Emitter)
	var prg, lnk bytes.Buffer
	if err := e.EmitHeader(&prg, r.Header()); err != nil {
		return nil, nil, nil, err
	}
	if res, err = e.EmitPrg(&prg, r.prg); err != nil {
		return nil, nil, nil, err
	}
	if err := e.EmitChars(&prg, r.res); err != nil {
		return nil, nil, nil, err
	}
	if err := e.EmitStartup(&prg); err != nil {
		return nil, nil, nil, err
	}
	if err := e.EmitLinkerConfig(&lnk); err != nil {
		return nil, nil, nil, err
	}
	return prg.Bytes(), lnk.Bytes(), res, nil
}

// EmitAsm writes prg.asm and lnk.cfg into dir, creating it if needed.
// Nothing is written if the program fails to render.
func (r *Rom) EmitAsm(dir string) (*emitter.Result, error) {
	src, cfg, res, err := r.Assembly()
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(dir)
	r.log.WithField("dir", abs).Info("emitting assembly")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	if err := os.WriteFile(filepath.Join(dir, AsmFile), src, 0o644); err != nil {
		return nil, errors.Wrapf(err, "write %s", AsmFile)
	}
	if err := os.WriteFile(filepath.Join(dir, CfgFile), cfg, 0o644); err != nil {
		return nil, errors.Wrapf(err, "write %s", CfgFile)
	}
	return res, nil
}

// Build emits into workDir (a temporary directory when empty), checks the
// source, assembles and links it into outDir/prg.nes. A failed build leaves
// no image behind.
func (r *Rom) Build(ctx context.Context, outDir, workDir string) (string, error) {
	if r.tools == nil || !r.tools.Valid() {
		return "", toolchain.ErrNotConfigured
	}
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "nesgen")
	}
	out := filepath.Join(outDir, OutFile)
	if err := r.build(ctx, out, workDir); err != nil {
		if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
			r.log.WithError(rmErr).Warn("could not remove partial image")
		}
		return "", err
	}
	r.log.WithField("image", out).Info("build complete")
	return out, nil
}

func (r *Rom) build(ctx context.Context, out, workDir string) error {
	if _, err := r.EmitAsm(workDir); err != nil {
		return err
	}
	asmPath := filepath.Join(workDir, AsmFile)
	src, err := os.ReadFile(asmPath)
	if err != nil {
		return errors.Wrap(err, "read back assembly")
	}
	if err := asm.Check(string(src)); err != nil {
		return errors.Wrapf(err, "%s", asmPath)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	obj := filepath.Join(workDir, ObjFile)
	if err := r.tools.Compile(ctx, asmPath, obj); err != nil {
		return err
	}
	return r.tools.Link(ctx, filepath.Join(workDir, CfgFile), obj, out)
}
