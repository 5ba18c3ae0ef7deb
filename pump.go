package main

import (
	"bufio"
	"io"
	"sync"
)

// stderrTag prefixes lines coming from the stderr pump so the two streams
// stay distinguishable after multiplexing.
const stderrTag = "[stderr] "

// pumpStreams reads both streams line by line into one shared channel.
// Each pump is a dedicated goroutine doing blocking reads; order is FIFO
// within a stream and unspecified across streams. The channel closes once
// both pipes reach EOF, which happens when the process exits or is killed.
func pumpStreams(stdout, stderr io.Reader) <-chan string {
	ch := make(chan string, 256)
	var wg sync.WaitGroup
	wg.Add(2)
	go pumpLines(stdout, "", ch, &wg)
	go pumpLines(stderr, stderrTag, ch, &wg)
	go func() {
		wg.Wait()
		close(ch)
	}()
	return ch
}

func pumpLines(r io.Reader, tag string, ch chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ch <- tag + line
	}
	// Read errors end the pump the same way EOF does; the process liveness
	// check is what reports the outcome.
}
