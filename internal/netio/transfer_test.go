package netio

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesxfer/mesxfer/internal/recfile"
)

// freePort asks the OS for an ephemeral TCP port and releases it
// immediately; there's a small window for another process to steal it, but
// that's an acceptable risk in a test harness.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func buildMesFile(t *testing.T) []byte {
	t.Helper()
	header := recfile.FileHeader{RecordsInFile: 2}
	copy(header.Type[:], "MES1")

	rec0 := recfile.RecordHeader{Time: 0, DataSize: 3}
	rec1 := recfile.RecordHeader{Time: 25, DataSize: 1}

	var out []byte
	out = append(out, recfile.EncodeFileHeader(header)...)
	out = append(out, recfile.EncodeRecordHeader(rec0)...)
	out = append(out, []byte("abc")...)
	out = append(out, recfile.EncodeRecordHeader(rec1)...)
	out = append(out, []byte("x")...)
	return out
}

// recordingSink captures lines for test-time inspection without asserting
// on their exact content, since diagnostic line wording isn't part of any
// contract the state machines rely on.
type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSink) AppendLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func TestTCPEndToEndIdentity(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.mes")
	dstPath := filepath.Join(dir, "received.mes")

	mesBytes := buildMesFile(t)
	require.NoError(t, os.WriteFile(srcPath, mesBytes, 0o644))

	senderPort := freePort(t)
	receiverLocalPort := freePort(t)

	sender := NewSender(TCP, srcPath, &recordingSink{})
	receiver := NewReceiver(TCP, dstPath, &recordingSink{})

	senderCfg := tcpAddr(senderPort)
	receiverCfg := tcpAddr(receiverLocalPort) + " " + tcpAddr(senderPort)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sender.Work(senderCfg)
	}()
	go func() {
		defer wg.Done()
		receiver.Work(receiverCfg)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		sender.Stop()
		receiver.Stop()
		t.Fatal("transfer did not complete in time")
	}

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	require.Equal(t, mesBytes, got)
}

func tcpAddr(port int) string {
	return "127.0.0.1:" + strconv.Itoa(port)
}
