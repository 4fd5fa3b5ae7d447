package capture

import (
	"context"
	"strings"
	"sync"
)

// HardwareAccelProbe detects which codec accelerators the installed
// encoder supports (via "-hwaccels") and augments an EncoderSource's args
// with the first available one; probing failures or an empty result fall
// back to unmodified software encoding rather than erroring, since
// hardware acceleration is an optimization, not a correctness requirement.
type HardwareAccelProbe struct {
	Program string // defaults to "ffmpeg"
	Runner  *ProcessRunner

	once      sync.Once
	available []string
}

// knownAccelArgs maps a hwaccel name to the ffmpeg args that select it,
// inserted before the input args.
var knownAccelArgs = map[string][]string{
	"cuda":         {"-hwaccel", "cuda"},
	"vaapi":        {"-hwaccel", "vaapi"},
	"videotoolbox": {"-hwaccel", "videotoolbox"},
	"qsv":          {"-hwaccel", "qsv"},
}

// probe runs once per HardwareAccelProbe, populating available from
// "ffmpeg -hwaccels" output. Any failure leaves available empty, which
// Augment treats as "no acceleration available".
func (p *HardwareAccelProbe) probe(ctx context.Context) {
	p.once.Do(func() {
		program := p.Program
		if program == "" {
			program = "ffmpeg"
		}
		result, err := p.Runner.Run(ctx, CommandSpec{Program: program, Args: []string{"-hwaccels"}})
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(result.Stdout), "\n") {
			name := strings.TrimSpace(line)
			if _, known := knownAccelArgs[name]; known {
				p.available = append(p.available, name)
			}
		}
	})
}

// Augment prepends hardware-acceleration args to extraArgs if a known
// accelerator is available, otherwise returns extraArgs unchanged.
func (p *HardwareAccelProbe) Augment(ctx context.Context, extraArgs []string) []string {
	p.probe(ctx)
	if len(p.available) == 0 {
		return extraArgs
	}
	accelArgs := knownAccelArgs[p.available[0]]
	out := make([]string, 0, len(accelArgs)+len(extraArgs))
	out = append(out, accelArgs...)
	out = append(out, extraArgs...)
	return out
}
