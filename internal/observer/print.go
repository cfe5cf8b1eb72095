package observer

import (
	"fmt"
	"io"
	"os"
	"strings"

	zbxpkg "zte.szuro.net/pkg/zbx"
)

const (
	STDOUT = "stdout"
	STDERR = "stderr"
)

type Print struct {
	baseObserver
	out io.Writer
}

func NewPrint(name, out string) (p *Print) {
	p = &Print{baseObserver: newBaseObserver(name, PRINT_TARGET)}
	if out == STDERR {
		p.out = os.Stderr
	} else {
		p.out = os.Stdout
	}
	return
}

func (p *Print) SaveEvents(e []zbxpkg.Event) bool {
	return p.saveEvents(e, p.eventFunction)
}

func formatEvent(e zbxpkg.Event) string {
	status := "OK"
	if e.IsProblem() {
		status = "PROBLEM"
	}
	hosts := make([]string, 0, len(e.Hosts))
	for _, h := range e.Hosts {
		hosts = append(hosts, h.Host)
	}
	msg := fmt.Sprintf("Event: %d; Trigger: %s; Status: %s; Severity: %d; Time: %d; Hosts: %s",
		e.EventID, e.Name, status, e.Severity, e.Clock, strings.Join(hosts, ","))
	if e.PEventID != 0 {
		msg += fmt.Sprintf("; Problem: %d", e.PEventID)
	}
	return msg
}

func (p *Print) eventFunction(e []zbxpkg.Event) (failed []zbxpkg.Event, err error) {
	for _, E := range e {
		if _, werr := fmt.Fprintln(p.out, formatEvent(E)); werr != nil {
			failed = append(failed, E)
			err = werr
		}
	}
	return failed, err
}
