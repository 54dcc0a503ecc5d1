// Package toolchain drives the external cc65 assembler and linker.
package toolchain

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotConfigured reports a missing ca65 or ld65 executable.
	ErrNotConfigured = errors.New("toolchain not configured")
	// ErrToolFailed reports a tool that exited non-zero or timed out.
	ErrToolFailed = errors.New("tool failed")
)

// DefaultTimeout bounds each tool invocation.
const DefaultTimeout = 30 * time.Second

// Toolchain holds the paths to ca65 and ld65.
type Toolchain struct {
	Ca65    string
	Ld65    string
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

func New(ca65, ld65 string) *Toolchain {
	return &Toolchain{Ca65: ca65, Ld65: ld65, Timeout: DefaultTimeout}
}

func (t *Toolchain) log() logrus.FieldLogger {
	if t.Logger == nil {
		return logrus.StandardLogger()
	}
	return t.Logger
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Valid reports whether both executables exist.
func (t *Toolchain) Valid() bool {
	return exists(t.Ca65) && exists(t.Ld65)
}

// Compile assembles asmFile into objFile:
//
//	ca65 <asm> --target nes -g -o <obj>
func (t *Toolchain) Compile(ctx context.Context, asmFile, objFile string) error {
	if !t.Valid() {
		return ErrNotConfigured
	}
	if !exists(asmFile) {
		return errors.Errorf("assembly file %s does not exist", asmFile)
	}
	return t.run(ctx, "ca65", t.Ca65, asmFile, "--target", "nes", "-g", "-o", objFile)
}

// Link links objFile with the configuration cfgFile into out:
//
//	ld65 -C <cfg> <obj> -o <out>
func (t *Toolchain) Link(ctx context.Context, cfgFile, objFile, out string) error {
	if !t.Valid() {
		return ErrNotConfigured
	}
	if !exists(cfgFile) {
		return errors.Errorf("linker config %s does not exist", cfgFile)
	}
	if !exists(objFile) {
		return errors.Errorf("object file %s does not exist", objFile)
	}
	return t.run(ctx, "ld65", t.Ld65, "-C", cfgFile, objFile, "-o", out)
}

func (t *Toolchain) run(ctx context.Context, tool, path string, args ...string) error {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	log := t.log().WithField("tool", tool)
	log.Debugf("%s %s", path, strings.Join(args, " "))

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second
	err := cmd.Run()
	output := strings.TrimSpace(out.String())
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		log.WithError(err).Error(output)
		return errors.Wrapf(ErrToolFailed, "%s: %v: %s", tool, err, output)
	}
	if output != "" {
		log.Info(output)
	}
	return nil
}
