package cmd

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/pkg/errors"
)

type clearFileWriter struct {
	file *os.File
	m    sync.Mutex
}

func (c *clearFileWriter) Write(p []byte) (int, error) {
	c.m.Lock()
	defer c.m.Unlock()
	_, err := c.file.Write([]byte(Clean(string(p))))
	return len(p), err
}

// logOutput tees stdout and stderr into the given file, with colors stripped. The returned
// function flushes the pending writes and closes the file.
func logOutput(logPath string) (func(), error) {
	err := os.MkdirAll(filepath.Dir(logPath), 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}

	mw := io.MultiWriter(os.Stdout, &clearFileWriter{file: f})

	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create log pipe")
	}

	os.Stdout = w
	os.Stderr = w
	log.SetOutput(mw)

	exit := make(chan bool)
	go func() {
		_, err := io.Copy(mw, r)
		if err != nil {
			panic(err)
		}
		exit <- true
	}()

	return func() {
		_ = w.Close()
		<-exit
		_ = f.Close()
	}, nil
}

const ansi = "[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))"

var re = regexp.MustCompile(ansi)

// Clean strips ANSI escape sequences.
func Clean(str string) string {
	return re.ReplaceAllString(str, "")
}
