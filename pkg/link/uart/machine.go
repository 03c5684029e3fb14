//go:build tinygo

package uart

import (
	"fmt"
	"machine"
	"time"
)

// MachineDriver drives a TinyGo machine.UART. The UART interrupt fills the
// machine's own buffer; a goroutine started by Configure moves those bytes
// into the link's receive ring one at a time until Close is called.
type MachineDriver struct {
	UART *machine.UART
	Poll time.Duration

	rx   chan func(byte)
	done chan struct{}
}

// NewMachineDriver wraps a UART. Use it for any UART other than the
// default, since which numbered UARTs exist depends on the target.
func NewMachineDriver(uart *machine.UART) *MachineDriver {
	return &MachineDriver{UART: uart}
}

// Open selects a UART by device name. Only "" and "default", meaning
// machine.DefaultUART, are portable across targets.
func Open(device string) (*MachineDriver, error) {
	switch device {
	case "", "default":
		return NewMachineDriver(machine.DefaultUART), nil
	}
	return nil, fmt.Errorf("unknown UART %q, use NewMachineDriver", device)
}

// Configure implements Driver.
func (d *MachineDriver) Configure(baud uint32, rx func(byte)) error {
	if err := d.UART.Configure(machine.UARTConfig{BaudRate: baud}); err != nil {
		return err
	}
	if d.rx != nil {
		// already polling, only the callback changes.
		d.rx <- rx
		return nil
	}
	d.rx = make(chan func(byte), 1)
	d.done = make(chan struct{})
	go d.poll(rx, d.rx, d.done)
	return nil
}

func (d *MachineDriver) poll(rx func(byte), update <-chan func(byte), done <-chan struct{}) {
	interval := d.Poll
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		select {
		case <-done:
			return
		case rx = <-update:
		default:
		}
		if d.UART.Buffered() == 0 {
			time.Sleep(interval)
			continue
		}
		if c, err := d.UART.ReadByte(); err == nil {
			rx(c)
		}
	}
}

// Write implements Driver.
func (d *MachineDriver) Write(p []byte) (int, error) {
	return d.UART.Write(p)
}

// Close stops forwarding received bytes. A later Configure starts again.
func (d *MachineDriver) Close() error {
	if d.done != nil {
		close(d.done)
		d.done, d.rx = nil, nil
	}
	return nil
}
