// Package sh provides an interactive shell for poking at a link.
package sh

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/bytelink/pkg/env"
	"github.com/robotalks/bytelink/pkg/link"
	"github.com/robotalks/bytelink/pkg/link/loopback"
)

// ErrNotOpen indicates a command requiring a link ran without one.
var ErrNotOpen = errors.New("no link open")

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell  *ishell.Shell
	Config *env.Config
	Link   link.TransportCloser
}

const (
	shellKey       = "$shell"
	closedPrompt   = "[none] > "
	maxReceiveSize = 4096
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&SendCmd,
		&RecvCmd,
		&StatsCmd,
		&CloseCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requiring an open link.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Link == nil {
			c.Err(ErrNotOpen)
			return
		}
		fn(c)
	}
}

// ParseHex parses bytes given as hex words, e.g. "01 02 0a0b".
func ParseHex(args []string) ([]byte, error) {
	var out []byte
	for _, arg := range args {
		arg = strings.TrimPrefix(strings.TrimPrefix(arg, "0x"), "0X")
		if len(arg)%2 == 1 {
			arg = "0" + arg
		}
		p, err := hex.DecodeString(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q", arg)
		}
		out = append(out, p...)
	}
	return out, nil
}

// FormatHex formats bytes the way ParseHex accepts them.
func FormatHex(p []byte) string {
	words := make([]string, len(p))
	for n, b := range p {
		words[n] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(words, " ")
}

// Open creates and initializes a link from url, replacing the current one.
// Empty url uses the configured one.
func (s *Shell) Open(url string) error {
	conf := *s.Config
	if url != "" {
		conf.URL = url
	}
	t, err := conf.NewTransport()
	if err != nil {
		return err
	}
	if err := t.Init(); err != nil {
		t.Close()
		return err
	}
	s.Close()
	s.Link = t
	if ep, ok := t.(*loopback.Endpoint); ok {
		// nothing else holds the other end, so it echoes.
		go echo(ep.Peer())
	}
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", conf.URL))
	return nil
}

// echo sends back every byte received until the link is closed.
func echo(t link.Transport) {
	p := make([]byte, 1)
	for {
		if err := t.Receive(p); err != nil {
			return
		}
		if err := t.Send(p); err != nil {
			return
		}
	}
}

// Close closes the current link.
func (s *Shell) Close() {
	if s.Link != nil {
		s.Link.Close()
		s.Link = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Stats returns counters of the current link, if it keeps any.
func (s *Shell) Stats() (link.StatsSnapshot, bool) {
	if r, ok := s.Link.(link.StatsReporter); ok {
		return r.Stats(), true
	}
	return link.StatsSnapshot{}, false
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen && s.Config.URL != "" {
		if s.Interactive {
			s.Shell.Printf("Opening %s ...\n", s.Config.URL)
		}
		if err := s.Open(""); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.URL, err)
		}
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens a link.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			var url string
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if err := ShellFrom(c).Open(url); err != nil {
				c.Err(err)
			}
		},
	}

	// SendCmd sends hex bytes.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "HEX...",
		Func: MustBeOpen(func(c *ishell.Context) {
			p, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Link.Send(p); err != nil {
				c.Err(err)
				return
			}
			c.Printf("sent %d bytes\n", len(p))
		}),
	}

	// RecvCmd receives N bytes, blocking until they arrive.
	RecvCmd = ishell.Cmd{
		Name:    "recv",
		Aliases: []string{"r"},
		Help:    "N",
		Func: MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("byte count expected"))
				return
			}
			n, err := strconv.Atoi(c.Args[0])
			if err != nil || n < 0 || n > maxReceiveSize {
				c.Err(fmt.Errorf("invalid byte count %q", c.Args[0]))
				return
			}
			p, err := link.ReceiveN(ShellFrom(c).Link, n)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(FormatHex(p))
		}),
	}

	// StatsCmd prints transfer counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context) {
			s := ShellFrom(c)
			st, ok := s.Stats()
			if !ok {
				c.Println("No stats")
				return
			}
			if s.OutputJSON {
				out, err := json.Marshal(st)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			c.Printf("sent %d bytes, received %d bytes\n", st.BytesSent, st.BytesReceived)
			c.Printf("waits send=%d receive=%d, errors=%d, dropped=%d\n",
				st.SendWaits, st.ReceiveWaits, st.Errors, st.Dropped)
		}),
	}

	// CloseCmd closes the current link.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"c"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	s := New(env.NewConfig())
	s.AutoOpen = true
	s.Run(flag.Args()...)
}
