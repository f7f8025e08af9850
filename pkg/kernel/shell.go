package kernel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/abiosoft/ishell/v2"
	"github.com/abiosoft/readline"

	"github.com/marmos91/kobject/pkg/kobject"
	"github.com/marmos91/kobject/pkg/process"
)

var errExit = errors.New("exit")

// Shell is a line-oriented command interpreter. Every command runs as
// syscalls of one process, so it sees exactly what that process holds.
type Shell struct {
	proc  *process.Process
	mgr   *process.Manager
	out   io.Writer
	shell *ishell.Shell

	stopOnce  sync.Once
	stopped   chan struct{}
	closeOnce sync.Once
}

type command struct {
	usage string
	help  string
	run   func(s *Shell, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":    {"help", "list commands", (*Shell).help},
		"ls":      {"ls [dir]", "list a directory", (*Shell).ls},
		"cat":     {"cat <path>", "print a file", (*Shell).cat},
		"write":   {"write <name> <text...>", "create or overwrite a file", (*Shell).write},
		"mkdir":   {"mkdir <name>", "create a directory", (*Shell).mkdir},
		"rm":      {"rm <name>", "remove a file or empty directory", (*Shell).rm},
		"stat":    {"stat <path>", "print kind and size", (*Shell).stat},
		"fds":     {"fds", "list open descriptors", (*Shell).fds},
		"tag":     {"tag <fd> <label>", "label a descriptor", (*Shell).tag},
		"devices": {"devices", "list block devices", (*Shell).devices},
		"pipe":    {"pipe <text...>", "send text through a pipe from a child process", (*Shell).pipe},
		"print":   {"print <text...>", "write text to the console", (*Shell).print},
		"ps":      {"ps", "count live processes", (*Shell).ps},
		"exit":    {"exit", "leave the shell", func(*Shell, []string) error { return errExit }},
	}
}

// NewShell creates a shell running as p and reading commands from in.
//
// Line editing is only enabled when in is the process's terminal.
func NewShell(k *Kernel, p *process.Process, in io.Reader, out io.Writer) *Shell {
	conf := &readline.Config{
		Prompt: "> ",
		Stdin:  readline.NewCancelableStdin(in),
		Stdout: out,
	}
	if in != os.Stdin {
		conf.FuncIsTerminal = func() bool { return false }
	}

	s := &Shell{
		proc:    p,
		mgr:     k.procs,
		out:     out,
		shell:   ishell.NewWithConfig(conf),
		stopped: make(chan struct{}),
	}

	s.shell.DeleteCmd("clear")
	for name, cmd := range commands {
		s.shell.AddCmd(&ishell.Cmd{
			Name: name,
			Help: cmd.help,
			Func: s.dispatch(name),
		})
	}
	s.shell.NotFound(func(c *ishell.Context) {
		name := ""
		if len(c.Args) > 0 {
			name = c.Args[0]
		}
		c.Printf("unknown command %q (try help)\n", name)
	})
	s.shell.EOF(func(c *ishell.Context) { c.Stop() })

	return s
}

// dispatch adapts a command to ishell. Failures are printed, not returned.
func (s *Shell) dispatch(name string) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		err := commands[name].run(s, c.Args)
		switch {
		case errors.Is(err, errExit):
			c.Stop()
		case err != nil:
			c.Printf("%s: %v\n", name, err)
		}
	}
}

func (s *Shell) Name() string { return "shell" }

// Serve reads and runs commands until exit, end of input, Stop or ctx
// cancellation.
func (s *Shell) Serve(ctx context.Context) error {
	// Start marks the shell active before it returns, so close always
	// reaches the read loop
	s.shell.Start()

	finished := make(chan struct{})
	go func() {
		s.shell.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
	case <-s.stopped:
	}
	s.close()
	return nil
}

// Stop makes Serve return.
func (s *Shell) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

// close halts the read loop and cancels a pending read of the input.
func (s *Shell) close() {
	s.closeOnce.Do(func() { s.shell.Close() })
}

// Exec runs one command line. Command failures are printed, not returned;
// the only error is errExit.
func (s *Shell) Exec(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	if err := s.shell.Process(args...); err != nil {
		fmt.Fprintf(s.out, "%s: %v\n", args[0], err)
	}
	if args[0] == "exit" {
		return errExit
	}
	return nil
}

func usage(name string) error {
	return fmt.Errorf("usage: %s", commands[name].usage)
}

func (s *Shell) help([]string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(s.out, "  %-24s %s\n", commands[name].usage, commands[name].help)
	}
	return nil
}

func (s *Shell) ls(args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	fd, err := s.proc.OpenDir(process.StdDir, path)
	if err != nil {
		return err
	}
	defer func() { _ = s.proc.Close(fd) }()

	dims := make([]int, 1)
	if err := s.proc.Size(fd, dims); err != nil {
		return err
	}
	buf := make([]byte, dims[0])
	n, err := s.proc.List(fd, buf)
	if err != nil {
		return err
	}

	for _, name := range bytes.Split(buf[:n], []byte{0}) {
		if len(name) > 0 {
			fmt.Fprintf(s.out, "%s\n", name)
		}
	}
	return nil
}

func (s *Shell) cat(args []string) error {
	if len(args) != 1 {
		return usage("cat")
	}

	fd, err := s.proc.OpenFile(process.StdDir, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = s.proc.Close(fd) }()

	buf := make([]byte, 512)
	for {
		n, err := s.proc.Read(fd, buf, 0)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := s.out.Write(buf[:n]); err != nil {
			return err
		}
	}
}

func (s *Shell) write(args []string) error {
	if len(args) < 2 {
		return usage("write")
	}

	fd, err := s.proc.OpenFile(process.StdDir, args[0])
	if errors.Is(err, process.ENOENT) {
		fd, err = s.proc.MakeFile(process.StdDir, args[0])
	}
	if err != nil {
		return err
	}
	defer func() { _ = s.proc.Close(fd) }()

	text := strings.Join(args[1:], " ") + "\n"
	n, err := s.proc.Write(fd, []byte(text), 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d bytes\n", n)
	return nil
}

func (s *Shell) mkdir(args []string) error {
	if len(args) != 1 {
		return usage("mkdir")
	}
	fd, err := s.proc.MakeDir(process.StdDir, args[0])
	if err != nil {
		return err
	}
	return s.proc.Close(fd)
}

func (s *Shell) rm(args []string) error {
	if len(args) != 1 {
		return usage("rm")
	}
	return s.proc.Remove(process.StdDir, args[0])
}

func (s *Shell) stat(args []string) error {
	if len(args) != 1 {
		return usage("stat")
	}

	fd, err := s.proc.OpenFile(process.StdDir, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = s.proc.Close(fd) }()

	return s.describe(fd, args[0])
}

func (s *Shell) describe(fd int, name string) error {
	kind, err := s.proc.Kind(fd)
	if err != nil {
		return err
	}
	dims := make([]int, kind.Dimensions())
	if err := s.proc.Size(fd, dims); err != nil {
		return err
	}

	tag := ""
	buf := make([]byte, 64)
	if n, err := s.proc.GetTag(fd, buf); err == nil {
		tag = " [" + string(buf[:min(n, len(buf)-1)]) + "]"
	}

	fmt.Fprintf(s.out, "%s: %s %v%s\n", name, kind, dims, tag)
	return nil
}

func (s *Shell) fds([]string) error {
	for _, fd := range s.proc.Descriptors() {
		if err := s.describe(fd, strconv.Itoa(fd)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) tag(args []string) error {
	if len(args) != 2 {
		return usage("tag")
	}
	fd, err := strconv.Atoi(args[0])
	if err != nil {
		return usage("tag")
	}
	return s.proc.SetTag(fd, args[1])
}

func (s *Shell) devices([]string) error {
	for _, name := range s.mgr.Devices() {
		fd, err := s.proc.OpenDevice(name)
		if err != nil {
			return err
		}
		err = s.describe(fd, name)
		_ = s.proc.Close(fd)
		if err != nil {
			return err
		}
	}
	return nil
}

// pipe starts a child holding the write end in slot 0 and reads what it
// sends.
func (s *Shell) pipe(args []string) error {
	if len(args) == 0 {
		return usage("pipe")
	}
	text := []byte(strings.Join(args, " "))

	fd, err := s.proc.OpenPipe()
	if err != nil {
		return err
	}
	defer func() { _ = s.proc.Close(fd) }()

	pid, err := s.proc.Run([]int{fd}, func(child *process.Process) int {
		if _, err := child.Write(0, text, 0); err != nil {
			return 1
		}
		return 0
	})
	if err != nil {
		return err
	}

	buf := make([]byte, len(text))
	got := 0
	for got < len(buf) {
		n, err := s.proc.Read(fd, buf[got:], 0)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		got += n
	}

	status, err := s.proc.Wait(context.Background(), pid)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "child %d exited %d: %s\n", pid, status, buf[:got])
	return nil
}

func (s *Shell) print(args []string) error {
	n, err := s.proc.Write(process.StdOut, []byte(strings.Join(args, " ")+"\n"), kobject.IONonBlock)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d bytes to console\n", n)
	return nil
}

func (s *Shell) ps([]string) error {
	fmt.Fprintf(s.out, "%d processes\n", s.mgr.Len())
	return nil
}
