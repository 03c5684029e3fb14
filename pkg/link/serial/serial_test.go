package serial

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	bugst "go.bug.st/serial"

	"github.com/robotalks/bytelink/pkg/link"
)

var _ link.Transport = &Transport{}

type fakePort struct {
	input       *bytes.Buffer
	output      bytes.Buffer
	closed      int
	inputReset  int
	outputReset int
	resetErr    error
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.input.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.output.Write(b) }

func (p *fakePort) Close() error {
	p.closed++
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.inputReset++
	return p.resetErr
}

func (p *fakePort) ResetOutputBuffer() error {
	p.outputReset++
	return p.resetErr
}

type fakeOpener struct {
	port  *fakePort
	err   error
	calls []string
	modes []*bugst.Mode
}

func (o *fakeOpener) open(path string, mode *bugst.Mode) (Port, error) {
	o.calls = append(o.calls, path)
	o.modes = append(o.modes, mode)
	if o.err != nil {
		return nil, o.err
	}
	return o.port, nil
}

func newFake(input ...byte) (*fakeOpener, *fakePort) {
	port := &fakePort{input: bytes.NewBuffer(input)}
	return &fakeOpener{port: port}, port
}

func TestModeSupportedBauds(t *testing.T) {
	for _, baud := range []int{9600, 19200, 38400, 57600, 115200} {
		mode, err := Config{Device: "/dev/ttyACM0", Baud: baud}.Mode()
		require.NoError(t, err)
		require.Equal(t, baud, mode.BaudRate)
		require.Equal(t, 8, mode.DataBits)
		require.Equal(t, bugst.NoParity, mode.Parity)
		require.Equal(t, bugst.OneStopBit, mode.StopBits)
	}
	require.Equal(t, []int{9600, 19200, 38400, 57600, 115200}, SupportedBauds())
}

func TestModeDefaultsBaud(t *testing.T) {
	mode, err := Config{Device: "/dev/ttyACM0"}.Mode()
	require.NoError(t, err)
	require.Equal(t, DefaultBaud, mode.BaudRate)
}

func TestModeRejects(t *testing.T) {
	for _, cfg := range []Config{
		{Device: "/dev/ttyACM0", Baud: 4800},
		{Device: "/dev/ttyACM0", Baud: 230400},
		{Device: "/dev/ttyACM0", Baud: -1},
		{Baud: 9600},
	} {
		_, err := cfg.Mode()
		require.Error(t, err)
		require.True(t, link.IsConfigError(err), "%+v", cfg)
	}
}

func TestUnsupportedBaudFailsWithoutIO(t *testing.T) {
	opener, port := newFake()
	tr := New(Config{Device: "/dev/ttyACM0", Baud: 4800}).WithOpener(opener.open)
	err := tr.Init()
	require.True(t, link.IsConfigError(err))
	require.Empty(t, opener.calls)
	require.Zero(t, port.inputReset)
	require.Equal(t, link.ErrNotInitialized, tr.Send([]byte{1}))
}

func TestInitOpensAndFlushes(t *testing.T) {
	opener, port := newFake()
	tr := New(Config{Device: "/dev/ttyACM0", Baud: 57600}).WithOpener(opener.open)
	require.NoError(t, tr.Init())
	require.Equal(t, []string{"/dev/ttyACM0"}, opener.calls)
	require.Equal(t, 57600, opener.modes[0].BaudRate)
	require.Equal(t, 1, port.inputReset)
	require.Equal(t, 1, port.outputReset)

	// a second Init keeps the open device.
	require.NoError(t, tr.Init())
	require.Len(t, opener.calls, 1)
}

func TestInitOpenFailure(t *testing.T) {
	opener, _ := newFake()
	opener.err = errors.New("no such file or directory")
	err := New(Config{Device: "/dev/missing"}).WithOpener(opener.open).Init()
	require.True(t, link.IsConfigError(err))
	require.True(t, errors.Is(err, opener.err))
}

func TestInitFlushFailureClosesPort(t *testing.T) {
	opener, port := newFake()
	port.resetErr = errors.New("ioctl failed")
	tr := New(Config{Device: "/dev/ttyACM0"}).WithOpener(opener.open)
	require.True(t, link.IsConfigError(tr.Init()))
	require.Equal(t, 1, port.closed)
}

func TestSendReceive(t *testing.T) {
	opener, port := newFake(0x01, 0x02, 0x03)
	tr := New(Config{Device: "/dev/ttyACM0"}).WithOpener(opener.open)
	require.NoError(t, tr.Init())
	require.NoError(t, tr.Send([]byte("ping")))
	require.Equal(t, "ping", port.output.String())
	got, err := link.ReceiveN(tr, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, got)
	require.Equal(t, uint64(4), tr.Stats().BytesSent)
	require.Equal(t, uint64(3), tr.Stats().BytesReceived)
}

func TestReceiveEndOfStream(t *testing.T) {
	opener, _ := newFake(0x01)
	tr := New(Config{Device: "/dev/ttyACM0"}).WithOpener(opener.open)
	require.NoError(t, tr.Init())
	err := tr.Receive(make([]byte, 2))
	require.True(t, link.IsMediumError(err))
	require.True(t, errors.Is(err, io.EOF))
}

func TestCloseExactlyOnce(t *testing.T) {
	opener, port := newFake()
	tr := New(Config{Device: "/dev/ttyACM0"}).WithOpener(opener.open)
	require.NoError(t, tr.Init())
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	require.Equal(t, 1, port.closed)
	require.Equal(t, link.ErrClosed, tr.Send([]byte{1}))
	require.Equal(t, link.ErrClosed, tr.Init())
}

func TestCloseBeforeInit(t *testing.T) {
	require.NoError(t, New(Config{Device: "/dev/ttyACM0"}).Close())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvDevice, "/dev/ttyUSB1")
	t.Setenv(EnvBaud, "9600")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, Config{Device: "/dev/ttyUSB1", Baud: 9600}, cfg)

	t.Setenv(EnvBaud, "fast")
	_, err = ConfigFromEnv()
	require.True(t, link.IsConfigError(err))

	t.Setenv(EnvBaud, "")
	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, DefaultBaud, cfg.Baud)
}
