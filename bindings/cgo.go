package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"bytes"
	"context"
	"sync"
	"unsafe"

	json "github.com/goccy/go-json"

	"github.com/nickyhof/ADOBridge"
	"github.com/nickyhof/ADOBridge/core"
	"github.com/nickyhof/ADOBridge/db"
	"github.com/nickyhof/ADOBridge/provider"
)

var (
	engineOnce sync.Once
	engine     *db.Engine
	engineErr  error
)

func sharedEngine() (*db.Engine, error) {
	engineOnce.Do(func() {
		router, err := provider.NewDefaultRouter(nil)
		if err != nil {
			engineErr = err
			return
		}
		engine, engineErr = ADOBridge.Open(router).Engine()
	})
	return engine, engineErr
}

// adobridge_dispatch runs one command in process. It returns the result
// document, or the error record when exit_code is non-zero. The caller
// releases the returned string with adobridge_free.
//
//export adobridge_dispatch
func adobridge_dispatch(command *C.char, payload *C.char, exit_code *C.int) *C.char {
	e, err := sharedEngine()
	if err != nil {
		return makeErrorRecord(err, exit_code)
	}

	var stdout, stderr bytes.Buffer
	code := e.Run(context.Background(), C.GoString(command), []byte(C.GoString(payload)), &stdout, &stderr)
	if exit_code != nil {
		*exit_code = C.int(code)
	}
	if code != core.ExitOK {
		return C.CString(stderr.String())
	}
	return C.CString(stdout.String())
}

//export adobridge_free
func adobridge_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func makeErrorRecord(err error, exit_code *C.int) *C.char {
	record := core.RecordOf(err)
	if exit_code != nil {
		*exit_code = C.int(record.ExitCode())
	}
	jsonData, _ := json.Marshal(record)
	return C.CString(string(jsonData))
}

func main() {}
