// Package shell is the interactive front end: it reads commands line by line,
// dispatches them to the controller and keeps the loop responsive while
// uploads and processing run in the background.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/local/pagepicker/internal/controller"
	"github.com/local/pagepicker/internal/filetype"
	"github.com/local/pagepicker/internal/view"
)

// SinkFactory builds the destination for a download. An empty target means
// the configured default.
type SinkFactory func(ctx context.Context, target string) (controller.Sink, error)

type Options struct {
	Controller *controller.Controller
	Detector   *filetype.Detector
	Sinks      SinkFactory
	View       controller.View
	Out        io.Writer
	Prompt     string
}

type Shell struct {
	ctrl     *controller.Controller
	detector *filetype.Detector
	sinks    SinkFactory
	view     controller.View
	out      io.Writer
	prompt   string

	wg sync.WaitGroup
}

func New(opts Options) *Shell {
	if opts.Detector == nil {
		opts.Detector = filetype.New()
	}
	return &Shell{
		ctrl:     opts.Controller,
		detector: opts.Detector,
		sinks:    opts.Sinks,
		view:     opts.View,
		out:      opts.Out,
		prompt:   opts.Prompt,
	}
}

const help = `commands:
  upload <file.pdf>     upload a document (runs in the background)
  pages                 show the page table
  status                show the workflow step
  toggle <pages>        toggle pages, e.g. "toggle 2" or "toggle 1,3-5"
  all | none            select or deselect every page
  toggle-all            deselect all when everything is selected, else select all
  process               submit the selection (runs in the background)
  download [target]     save the result to a directory, file or s3://bucket/key
  reset                 start over
  clear-cache           ask the server to drop its cached files
  wait                  wait for background requests
  quit                  leave the shell`

// Run reads commands from in until EOF, quit, or ctx is cancelled. It waits
// for background requests before returning.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	defer s.wg.Wait()
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-readCtx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	s.printPrompt()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			quit := s.Exec(ctx, line)
			if quit {
				return nil
			}
			s.printPrompt()
		}
	}
}

func (s *Shell) printPrompt() {
	if s.prompt != "" {
		fmt.Fprint(s.out, s.prompt)
	}
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "help", "?":
		fmt.Fprintln(s.out, help)
	case "quit", "exit", "q":
		return true
	case "status":
		fmt.Fprintln(s.out, view.StepLine(s.ctrl.Snapshot()))
	case "pages", "ls":
		fmt.Fprintln(s.out, view.PageTable(s.ctrl.Snapshot()))
	case "upload":
		s.upload(ctx, args)
	case "toggle", "t":
		s.toggle(args)
	case "all":
		_ = s.ctrl.SelectAll()
	case "none":
		_ = s.ctrl.DeselectAll()
	case "toggle-all", "ta":
		_ = s.ctrl.ToggleSelectAll()
	case "process", "p":
		s.background(ctx, "process", s.ctrl.SubmitProcess)
	case "download", "d":
		s.download(ctx, args)
	case "reset":
		s.ctrl.Reset()
	case "clear-cache":
		msg, err := s.ctrl.ClearCache(ctx)
		if err == nil {
			fmt.Fprintln(s.out, msg)
		}
	case "wait":
		s.wg.Wait()
	default:
		s.notify(fmt.Errorf("unknown command %q, try help", cmd))
	}
	return false
}

// Wait blocks until background requests finish.
func (s *Shell) Wait() { s.wg.Wait() }

func (s *Shell) notify(err error) {
	if s.view != nil {
		s.view.Notify(err)
		return
	}
	fmt.Fprintf(s.out, "error: %v\n", err)
}

func (s *Shell) background(ctx context.Context, name string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, controller.ErrSuperseded) {
			log.Debug().Err(err).Str("action", name).Msg("background action finished with error")
		}
	}()
}

func (s *Shell) upload(ctx context.Context, args []string) {
	if len(args) != 1 {
		s.notify(fmt.Errorf("%w: got %d files", controller.ErrInvalidFileType, len(args)))
		return
	}
	f, closer, err := OpenUpload(s.detector, args[0])
	if err != nil {
		s.notify(err)
		return
	}
	s.background(ctx, "upload", func(ctx context.Context) error {
		defer closer.Close()
		return s.ctrl.SubmitUpload(ctx, f)
	})
}

func (s *Shell) toggle(args []string) {
	if len(args) == 0 {
		s.notify(errors.New("toggle needs page numbers"))
		return
	}
	pages, err := ParsePages(strings.Join(args, ","), s.ctrl.Snapshot().TotalPages)
	if err != nil {
		s.notify(err)
		return
	}
	_ = s.ctrl.TogglePages(pages)
}

func (s *Shell) download(ctx context.Context, args []string) {
	if len(args) > 1 {
		s.notify(errors.New("download takes at most one target"))
		return
	}
	if s.ctrl.Snapshot().ResultRef == "" {
		fmt.Fprintln(s.out, "nothing to download yet")
		return
	}
	target := ""
	if len(args) == 1 {
		target = args[0]
	}
	sink, err := s.sinks(ctx, target)
	if err != nil {
		s.notify(err)
		return
	}
	loc, err := s.ctrl.Download(ctx, sink)
	if err == nil && loc != "" {
		fmt.Fprintf(s.out, "saved %s\n", loc)
	}
}
