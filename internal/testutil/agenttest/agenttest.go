// Package agenttest runs a scripted device agent for protocol tests. It reads
// request frames and answers from per-command reply queues.
package agenttest

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/botectl/internal/protocol/frame"
	"github.com/edwingeng/deque/v2"
	"github.com/rs/zerolog/log"
)

// Reply is one scripted response.
type Reply struct {
	Payload []byte
	// Chunk > 0 splits the response frame into writes of this size.
	Chunk int
	// Delay is slept before the response is written.
	Delay time.Duration
	// Hangup closes the connection instead of answering, or right after
	// writing Raw when both are set.
	Hangup bool
	// Raw is written verbatim instead of a well-formed frame.
	Raw []byte
}

// Text is a Reply with a string payload.
func Text(payload string) Reply { return Reply{Payload: []byte(payload)} }

// Call is one request observed by the agent.
type Call struct {
	Command string
	Args    [][]byte
}

// StringArgs returns the arguments after the command name as strings.
func (c Call) StringArgs() []string {
	out := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		out = append(out, string(a))
	}
	return out
}

type Agent struct {
	mu       sync.Mutex
	queues   map[string]*deque.Deque[Reply]
	defaults map[string]Reply
	calls    []Call

	ln    net.Listener
	conns sync.WaitGroup
	done  chan struct{}
	once  sync.Once
}

func New() *Agent {
	return &Agent{
		queues:   make(map[string]*deque.Deque[Reply]),
		defaults: make(map[string]Reply),
		done:     make(chan struct{}),
	}
}

// Listen starts the agent as a driver listening on loopback. It is closed
// when the test ends.
func Listen(t testing.TB) *Agent {
	t.Helper()
	a := New()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("agenttest listen: %v", err)
	}
	a.ln = ln
	go a.acceptLoop()
	t.Cleanup(a.Close)
	return a
}

// DialIn connects the agent to a controller that is accepting devices.
func (a *Agent) DialIn(t testing.TB, addr string) {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("agenttest dial %s: %v", addr, err)
	}
	a.conns.Add(1)
	go a.serve(conn)
	t.Cleanup(a.Close)
}

func (a *Agent) Addr() string {
	if a.ln == nil {
		return ""
	}
	return a.ln.Addr().String()
}

// Queue appends replies for command; they are consumed in order.
func (a *Agent) Queue(command string, replies ...Reply) {
	a.mu.Lock()
	defer a.mu.Unlock()
	q, ok := a.queues[command]
	if !ok {
		q = deque.NewDeque[Reply]()
		a.queues[command] = q
	}
	for _, r := range replies {
		q.PushFront(r)
	}
}

// QueueText is Queue with string payloads.
func (a *Agent) QueueText(command string, payloads ...string) {
	replies := make([]Reply, 0, len(payloads))
	for _, p := range payloads {
		replies = append(replies, Text(p))
	}
	a.Queue(command, replies...)
}

// Default sets the reply used once a command's queue is empty.
func (a *Agent) Default(command string, r Reply) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defaults[command] = r
}

func (a *Agent) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Call, len(a.calls))
	copy(out, a.calls)
	return out
}

// CallsTo returns the observed calls of one command.
func (a *Agent) CallsTo(command string) []Call {
	var out []Call
	for _, c := range a.Calls() {
		if c.Command == command {
			out = append(out, c)
		}
	}
	return out
}

func (a *Agent) Close() {
	a.once.Do(func() {
		close(a.done)
		if a.ln != nil {
			_ = a.ln.Close()
		}
		a.conns.Wait()
	})
}

func (a *Agent) acceptLoop() {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			return
		}
		a.conns.Add(1)
		go a.serve(conn)
	}
}

func (a *Agent) serve(conn net.Conn) {
	defer a.conns.Done()
	defer conn.Close()
	go func() {
		<-a.done
		_ = conn.Close()
	}()
	r := bufio.NewReader(conn)
	for {
		args, err := frame.ReadRequest(r, frame.DefaultLimits())
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debug().Msgf("agenttest.serve read err=%v", err)
			}
			return
		}
		call := Call{Command: string(args[0]), Args: args[1:]}
		reply := a.record(call)
		if reply.Delay > 0 {
			time.Sleep(reply.Delay)
		}
		if reply.Hangup && reply.Raw == nil {
			return
		}
		if err := write(conn, reply); err != nil {
			return
		}
		if reply.Hangup {
			return
		}
	}
}

func (a *Agent) record(call Call) Reply {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
	if q, ok := a.queues[call.Command]; ok && q.Len() > 0 {
		return q.PopBack()
	}
	if r, ok := a.defaults[call.Command]; ok {
		return r
	}
	return Text("null")
}

func write(conn net.Conn, reply Reply) error {
	out := reply.Raw
	if out == nil {
		out = frame.EncodeResponse(string(reply.Payload))
	}
	if reply.Chunk <= 0 {
		_, err := conn.Write(out)
		return err
	}
	for len(out) > 0 {
		n := reply.Chunk
		if n > len(out) {
			n = len(out)
		}
		if _, err := conn.Write(out[:n]); err != nil {
			return err
		}
		out = out[n:]
		time.Sleep(time.Millisecond)
	}
	return nil
}
