package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/playback"
	"github.com/dgnsrekt/storycast/internal/session"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	readFrom   string
	readVoices []string
	readWatch  bool
)

const keyHelp = `| Key | Action |
|---|---|
| space | play / pause |
| n, → | next segment |
| p, ← | previous segment |
| +, - | faster / slower |
| r | restart from the beginning |
| s | stop |
| q | quit |
`

var readCmd = &cobra.Command{
	Use:   "read [SOURCE]",
	Short: "Read a story aloud",
	Long: paragraph(fmt.Sprintf("\n%s a story aloud, one voice per character. On a terminal, playback is controlled with the keyboard; otherwise the story is read once from start to end.",
		keyword("Read"))),
	Example: paragraph("storycast read story.txt\nstorycast read story.txt --from \"the dragon\"\nstorycast read story.txt --speed 1.25 --watch"),
	Args:    cobra.MaximumNArgs(1),
	RunE:    runRead,
}

func init() {
	readCmd.Flags().StringVar(&readFrom, "from", "", "start at a segment id, index, or fuzzy text match")
	readCmd.Flags().StringArrayVar(&readVoices, "voice", nil, "assign a voice to a speaker (Speaker=Voice, repeatable)")
	readCmd.Flags().BoolVarP(&readWatch, "watch", "w", false, "re-read the story when the file changes")
	readCmd.Flags().Float64("speed", 1.0, "playback speed (0.5 to 2.0)")
	readCmd.Flags().Bool("prefetch", true, "synthesize the next segment while the current one plays")

	_ = viper.BindPFlag("playback.speed", readCmd.Flags().Lookup("speed"))
	_ = viper.BindPFlag("playback.prefetch", readCmd.Flags().Lookup("prefetch"))
}

// reader drives one interactive or one-shot reading.
type reader struct {
	sess      *session.Session
	out       io.Writer
	width     int
	overrides []voiceOverride

	mu  sync.Mutex
	raw bool

	ended chan struct{}
}

// printf writes to the output, translating newlines while the terminal is
// in raw mode.
func (r *reader) printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raw {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	_, _ = io.WriteString(r.out, s)
}

func (r *reader) onChange(st playback.State) {
	switch st.Status {
	case playback.StatusPlaying:
		segs := r.sess.Segments()
		if st.Index >= 0 && st.Index < len(segs) {
			var b strings.Builder
			printSegment(&b, segs[st.Index], r.width)
			r.printf("%s", b.String())
		}
	case playback.StatusStopped:
		if st.CurrentSegmentID == "" {
			select {
			case r.ended <- struct{}{}:
			default:
			}
		}
	}
}

func (r *reader) onError(id string, err error) {
	r.printf("%s\n", warning(fmt.Sprintf("skipped %s: %v", id, err)))
}

// load analyzes text and applies the voice overrides.
func (r *reader) load(ctx context.Context, text string) error {
	r.printf("%s\n", faint("Analyzing story..."))
	if err := r.sess.Analyze(ctx, text); err != nil {
		return err
	}
	if err := applyVoiceOverrides(r.sess, r.overrides); err != nil {
		return err
	}
	if err := r.sess.SetSpeed(cfg.Playback.Speed); err != nil {
		return err
	}

	var b strings.Builder
	printCast(&b, r.sess.Cast())
	r.printf("%s", b.String())
	return nil
}

func runRead(cmd *cobra.Command, args []string) error {
	overrides, err := parseVoiceOverrides(readVoices)
	if err != nil {
		return err
	}
	text, path, err := readStory(args)
	if err != nil {
		return err
	}
	if readWatch && path == "" {
		return fmt.Errorf("--watch needs a story file")
	}

	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r := &reader{
		sess:      sess,
		out:       os.Stdout,
		width:     terminalWidth(),
		overrides: overrides,
		ended:     make(chan struct{}, 1),
	}
	sess.OnChange(r.onChange)
	sess.OnError(r.onError)

	if err := r.load(ctx, text); err != nil {
		return err
	}
	from, err := pickSegment(sess.Segments(), readFrom)
	if err != nil {
		return err
	}

	var changes <-chan string
	if readWatch {
		c, stop, err := watchFile(path)
		if err != nil {
			return err
		}
		defer stop()
		changes = c
	}

	var keys <-chan byte
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		printKeyHelp(r.width)
		state, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("unable to set terminal mode: %w", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), state) //nolint:errcheck
		r.mu.Lock()
		r.raw = true
		r.mu.Unlock()
		keys = readKeys(os.Stdin)
	}

	if err := sess.Play(ctx, from); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			sess.Stop()
			return nil

		case <-r.ended:
			if !interactive && !readWatch {
				return nil
			}
			r.printf("%s\n", faint("Stopped. Press space to play from the start, q to quit."))

		case k, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			quit, err := r.handleKey(ctx, k)
			if err != nil {
				return err
			}
			if quit {
				sess.Stop()
				return nil
			}

		case p := <-changes:
			b, err := os.ReadFile(p) //nolint:gosec
			if err != nil {
				log.Warn("Could not re-read story", "path", p, "error", err)
				continue
			}
			r.printf("%s\n", faint("Story changed, reading again."))
			if err := r.load(ctx, string(b)); err != nil {
				r.printf("%s\n", warning(err.Error()))
				continue
			}
			if err := sess.Play(ctx, 0); err != nil {
				return err
			}
		}
	}
}

// handleKey applies one key press. It reports whether the reader should quit.
func (r *reader) handleKey(ctx context.Context, k byte) (bool, error) {
	segs := r.sess.Segments()
	st := r.sess.State()
	current := -1
	for i, s := range segs {
		if s.ID == st.CurrentSegmentID {
			current = i
			break
		}
	}

	var err error
	switch k {
	case 'q', 3: // ctrl+c
		return true, nil
	case ' ':
		err = r.sess.Toggle(ctx)
	case 's':
		r.sess.Stop()
	case 'r':
		err = r.sess.Play(ctx, 0)
	case 'n', 'C':
		if current+1 < len(segs) {
			err = r.sess.PlaySegment(ctx, segs[current+1].ID)
		}
	case 'p', 'D':
		if current > 0 {
			err = r.sess.PlaySegment(ctx, segs[current-1].ID)
		}
	case '+', '=':
		err = r.changeSpeed(playback.NextSpeed(st.Speed))
	case '-', '_':
		err = r.changeSpeed(playback.PrevSpeed(st.Speed))
	}
	if err != nil && !isSegmentError(err) {
		return false, err
	}
	if err != nil {
		r.printf("%s\n", warning(err.Error()))
	}
	return false, nil
}

func (r *reader) changeSpeed(speed float64) error {
	if err := r.sess.SetSpeed(speed); err != nil {
		return err
	}
	r.printf("%s\n", faint("speed "+playback.SpeedLabel(speed)))
	return nil
}

// readKeys delivers key presses from in. Arrow keys arrive as ESC [ X and
// are reduced to X.
func readKeys(in io.Reader) <-chan byte {
	ch := make(chan byte)
	go func() {
		defer close(ch)
		buf := make([]byte, 8)
		for {
			n, err := in.Read(buf)
			if err != nil {
				return
			}
			b := buf[:n]
			if n == 3 && b[0] == 0x1b && b[1] == '[' {
				b = b[2:]
			}
			for _, k := range b {
				ch <- k
			}
		}
	}()
	return ch
}

// watchFile reports path whenever the file is written. Editors that save by
// renaming are handled by watching the parent directory.
func watchFile(path string) (<-chan string, func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, nil, fmt.Errorf("unable to watch %s: %w", path, err)
	}

	out := make(chan string)
	go func() {
		var debounce <-chan time.Time
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				debounce = time.After(200 * time.Millisecond)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("File watch error", "error", err)
			case <-debounce:
				debounce = nil
				out <- path
			}
		}
	}()

	return out, func() { _ = w.Close() }, nil
}

func printKeyHelp(width int) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	out, err := r.Render(keyHelp)
	if err != nil {
		return
	}
	fmt.Print(out)
}
