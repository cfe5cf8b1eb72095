// Package input feeds Zabbix history into trigger evaluation.
package input

import (
	"time"

	"zte.szuro.net/internal/config"
)

// DefaultFlushInterval bounds how long a value waits in a partial batch.
const DefaultFlushInterval = time.Second

type Inputer interface {
	GetSubject() *Subject
	IsReady() bool
	Start()
	Stop() error
}

type baseInput struct {
	config  config.ZTEConf
	subject *Subject
}

func newBaseInput(conf config.ZTEConf) baseInput {
	return baseInput{
		config:  conf,
		subject: NewSubject(conf.BufferSize, DefaultFlushInterval),
	}
}

func (bi *baseInput) GetSubject() *Subject {
	return bi.subject
}

func (bi *baseInput) Start() {
	go bi.subject.AcceptValues()
}

func (bi *baseInput) Stop() error {
	bi.subject.Close()
	return nil
}
