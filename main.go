// Command nesgen builds the demo game into an iNES image with the cc65
// toolchain, or emits its assembly for inspection.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nesgen/pkg/chr"
	"nesgen/pkg/demo"
	"nesgen/pkg/emitter"
	"nesgen/pkg/program"
	"nesgen/pkg/rom"
	"nesgen/pkg/sim"
	"nesgen/pkg/toolchain"
	"nesgen/pkg/utils"
)

type options struct {
	verbose bool

	out        string
	im         string
	ca65       string
	ld65       string
	chrFile    string
	chrImage   string
	nametables []string
	inlineCHR  bool
	mirroring  string
	mapper     string
	noComments bool
	noHints    bool
	timeout    time.Duration
}

func (o *options) logger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.WarnLevel)
	if o.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// parseNametables splits label=file pairs.
func parseNametables(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		label, file, ok := strings.Cut(p, "=")
		if !ok || label == "" || file == "" {
			return nil, errors.Errorf("nametable %q is not label=file", p)
		}
		out[label] = file
	}
	return out, nil
}

// rom builds the demo and wraps it with the configured packaging.
func (o *options) rom(log logrus.FieldLogger) (*rom.Rom, error) {
	nts, err := parseNametables(o.nametables)
	if err != nil {
		return nil, err
	}
	d, err := demo.Build(demo.Options{
		Nametable: nts[demo.TitleLabel],
		CHRFile:   o.chrFile,
		CHRImage:  o.chrImage,
		InlineCHR: o.inlineCHR,
	})
	if err != nil {
		return nil, err
	}
	for label, file := range nts {
		if label != demo.TitleLabel {
			d.Resources.AddNametable(label, file)
		}
	}

	cfg := rom.DefaultConfig()
	if cfg.Mirroring, err = rom.ParseMirroring(o.mirroring); err != nil {
		return nil, err
	}
	if cfg.Mapper, err = rom.ParseMapper(o.mapper); err != nil {
		return nil, err
	}
	cfg.Emitter.EmitComments = !o.noComments
	cfg.Emitter.EmitAddressHints = !o.noHints
	cfg.Emitter.Logger = log
	return rom.New(cfg, d.Program, d.Resources), nil
}

func existingDir(flag, path string) (string, error) {
	info, err := utils.GetPathInfo(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir {
		return "", errors.Errorf("--%s %s is not a directory", flag, path)
	}
	return info.Full, nil
}

func existingFile(flag, path string) (string, error) {
	info, err := utils.GetPathInfo(path)
	if err != nil {
		return "", err
	}
	if !info.Exists || info.IsDir {
		return "", errors.Errorf("--%s %s is not a file", flag, path)
	}
	return info.Full, nil
}

func addResourceFlags(cmd *cobra.Command, o *options) {
	f := cmd.Flags()
	f.StringVar(&o.chrFile, "chr", "", "raw 8 KiB CHR bank")
	f.StringVar(&o.chrImage, "chr-image", "", "PNG or BMP tile sheet, 128 px wide")
	f.StringArrayVar(&o.nametables, "nametable", nil, "nametable as label=file (repeatable); "+demo.TitleLabel+" is the title screen")
	f.BoolVar(&o.inlineCHR, "inline-chr", false, "emit CHR data as .byte lines instead of .incbin")
	f.StringVar(&o.mirroring, "mirroring", "horizontal", "horizontal or vertical")
	f.StringVar(&o.mapper, "mapper", "NROM", "NROM, MMC1, UNROM, CNROM or MMC3")
	f.BoolVar(&o.noComments, "no-comments", false, "omit name comments and CHR annotations")
	f.BoolVar(&o.noHints, "no-hints", false, "omit address hints after constants")
}

func newBuildCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble and link the demo into <out>/prg.nes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := existingDir("out", o.out)
			if err != nil {
				return err
			}
			ca65, err := existingFile("ca", o.ca65)
			if err != nil {
				return err
			}
			ld65, err := existingFile("ld", o.ld65)
			if err != nil {
				return err
			}
			log := o.logger(cmd.ErrOrStderr())
			log.WithFields(logrus.Fields{"out": out, "im": o.im, "ca65": ca65, "ld65": ld65}).Debug("build")

			r, err := o.rom(log)
			if err != nil {
				return err
			}
			tc := toolchain.New(ca65, ld65)
			tc.Timeout = o.timeout
			tc.Logger = log
			r.SetToolchain(tc)

			image, err := r.Build(cmd.Context(), out, o.im)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), image)
			return nil
		},
	}
	cmd.Flags().StringVar(&o.out, "out", "", "output directory (must exist)")
	cmd.Flags().StringVar(&o.im, "im", "", "intermediate directory for prg.asm, lnk.cfg and prg.o")
	cmd.Flags().StringVar(&o.ca65, "ca", "", "path to ca65")
	cmd.Flags().StringVar(&o.ld65, "ld", "", "path to ld65")
	cmd.Flags().DurationVar(&o.timeout, "timeout", toolchain.DefaultTimeout, "limit for each tool run")
	for _, f := range []string{"out", "im", "ca", "ld"} {
		cmd.MarkFlagRequired(f)
	}
	addResourceFlags(cmd, o)
	return cmd
}

func newEmitCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Write the demo's prg.asm and lnk.cfg without assembling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := utils.GetPathInfo(o.out)
			if err != nil {
				return err
			}
			out := dir.Full
			log := o.logger(cmd.ErrOrStderr())
			r, err := o.rom(log)
			if err != nil {
				return err
			}
			res, err := r.EmitAsm(out)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, filepath.Join(out, rom.AsmFile))
			fmt.Fprintln(w, filepath.Join(out, rom.CfgFile))
			for _, d := range res.Diagnostics {
				fmt.Fprintln(w, "warning:", d.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&o.out, "out", "", "directory for prg.asm and lnk.cfg")
	cmd.MarkFlagRequired("out")
	addResourceFlags(cmd, o)
	return cmd
}

func newChrCmd(o *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "chr <sheet.png|sheet.bmp>",
		Short: "Convert a tile sheet image into raw CHR data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := existingFile("image", args[0])
			if err != nil {
				return err
			}
			data, err := chr.EncodeFile(in)
			if err != nil {
				return err
			}
			if len(data) > chr.BankSize {
				return errors.Errorf("%s holds %d bytes of tiles, more than one %d byte bank", args[0], len(data), chr.BankSize)
			}
			if out == "" {
				out = strings.TrimSuffix(in, filepath.Ext(in)) + ".chr"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return errors.Wrap(err, "write CHR data")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tiles -> %s\n", len(data)/chr.TileBytes, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: input with .chr extension)")
	return cmd
}

// parseButtons reads a comma-separated list of controller bytes, one per
// frame, in any base strconv accepts.
func parseButtons(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	var out []byte
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 0, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "button state %q", f)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

func newTraceCmd(o *options) *cobra.Command {
	var buttons string
	var instructions bool
	cmd := &cobra.Command{
		Use:    "trace",
		Short:  "Debug the demo's input handling in the simulator",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := parseButtons(buttons)
			if err != nil {
				return err
			}
			d, err := demo.Build(demo.Options{})
			if err != nil {
				return err
			}
			img, err := sim.Load(d.Program)
			if err != nil {
				return err
			}
			cpu := sim.New(img)
			w := cmd.OutOrStdout()
			if instructions {
				cpu.Trace = func(ev sim.TraceEvent) {
					fmt.Fprintf(w, "%6d %-16s %-20s A=%02X X=%02X Y=%02X SP=%02X P=%02X\n",
						ev.Step, ev.Proc, emitter.FormatInstruction(ev.Inst), ev.A, ev.X, ev.Y, ev.SP, ev.Flags)
				}
			}

			// reset ends in the idle loop; stop it once the PPU is set up
			if err := cpu.Start(program.ResetHandlerName); err != nil {
				return err
			}
			for cpu.PPU.Ctrl&0x80 == 0 {
				if err := cpu.Step(); err != nil {
					return err
				}
				if cpu.Steps > demo.FrameSteps*100 {
					return errors.Wrap(sim.ErrStepLimit, "reset")
				}
			}
			x, y := d.Player(cpu)
			fmt.Fprintf(w, "reset: player at (%d,%d) %s\n", x, y, cpu)
			for i, b := range frames {
				if err := d.Frame(cpu, b); err != nil {
					return errors.Wrapf(err, "frame %d", i)
				}
				x, y := d.Player(cpu)
				fmt.Fprintf(w, "frame %d: buttons=%-22s player at (%d,%d)\n", i, program.Button(b), x, y)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&buttons, "buttons", "", "controller state per frame, e.g. 0x01,0x01,0x08")
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print every executed instruction")
	return cmd
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "nesgen",
		Short:         "Generate, assemble and link a NES program",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "log tool command lines and output")
	root.AddCommand(newBuildCmd(o), newEmitCmd(o), newChrCmd(o), newTraceCmd(o))
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "nesgen:", err)
		os.Exit(1)
	}
}
