// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package fingerprint

import (
	"sync"
	"sync/atomic"
	"time"
)

// OnMatchFunc is a callback type for search outcomes. It also fires for
// fingers that matched no template, with Found false.
type OnMatchFunc func(SearchResult)

// OnErrorFunc is a callback type for error reporting.
type OnErrorFunc func(error)

// FingerMonitor polls the sensor for a finger at a fixed interval and runs
// the capture/convert/search cycle whenever one is present. It owns the
// handler between Start and Stop; no other exchange may run concurrently.
type FingerMonitor struct {
	handler  FingerprintApi
	interval time.Duration
	buffer   CharBuffer
	count    int // templates searched per cycle, <= 0 means the whole database
	onMatch  atomic.Value
	onError  atomic.Value
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewFingerMonitor creates a monitor polling the handler at the given
// interval. count bounds each search, <= 0 searches the whole database.
func NewFingerMonitor(handler FingerprintApi, interval time.Duration, count int) *FingerMonitor {
	return &FingerMonitor{
		handler:  handler,
		interval: interval,
		buffer:   CharBuffer1,
		count:    count,
		stopCh:   make(chan struct{}),
	}
}

// SetOnMatch sets the callback for search outcomes.
func (m *FingerMonitor) SetOnMatch(fn OnMatchFunc) {
	m.onMatch.Store(fn)
}

// SetOnError sets the callback for error events.
func (m *FingerMonitor) SetOnError(fn OnErrorFunc) {
	m.onError.Store(fn)
}

// Start launches the polling goroutine.
func (m *FingerMonitor) Start() {
	m.wg.Add(1)
	go m.poll()
}

// Stop stops the polling goroutine and waits for it to exit.
func (m *FingerMonitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func (m *FingerMonitor) poll() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.scan()
		}
	}
}

// scan runs one capture cycle. A missing finger is the common case and is
// not reported anywhere.
func (m *FingerMonitor) scan() {
	present, err := m.handler.ReadImage()
	if err != nil {
		m.reportError(err)
		return
	}
	if !present {
		return
	}
	if err := m.handler.ConvertImage(m.buffer); err != nil {
		m.reportError(err)
		return
	}
	result, err := m.handler.SearchTemplate(m.buffer, 0, m.count)
	if err != nil {
		m.reportError(err)
		return
	}
	if cb := m.onMatch.Load(); cb != nil {
		cb.(OnMatchFunc)(result)
	}
}

func (m *FingerMonitor) reportError(err error) {
	if cb := m.onError.Load(); cb != nil {
		cb.(OnErrorFunc)(err)
	}
}
