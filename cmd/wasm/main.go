//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"
	"time"

	"github.com/kittclouds/usergrid/internal/store"
	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/editsession"
	"github.com/kittclouds/usergrid/pkg/logging"
	"github.com/kittclouds/usergrid/pkg/recordfilter"
	"github.com/kittclouds/usergrid/pkg/records"
	"github.com/kittclouds/usergrid/pkg/recordstore"
	"github.com/kittclouds/usergrid/pkg/response"
	"github.com/kittclouds/usergrid/pkg/userapi"
)

// Version info
const Version = "0.1.0"

// Global state
var engine *coordinator.Coordinator
var localStore *store.SQLStore // nil when talking to a remote backend

var demoUsers = []records.Record{
	{ID: 0, Name: "api-name1", Username: "api-username1", Email: "api-email1@test.com"},
	{ID: 1, Name: "api-name2", Username: "api-username2", Email: "api-email2@test.com"},
}

// initConfig is the JSON accepted by init.
type initConfig struct {
	BaseURL      string `json:"baseURL"`
	LockScope    string `json:"lockScope"`
	BulkFallback *bool  `json:"bulkFallback"`
	TimeoutMs    int    `json:"timeoutMs"`
	LogLevel     string `json:"logLevel"`
}

func main() {
	fmt.Println("[usergrid] WASM Ready v" + Version)

	js.Global().Set("UserGrid", js.ValueOf(map[string]interface{}{
		"version": js.FuncOf(getVersion),
		"init":    js.FuncOf(initialize),
		// Canonical records
		"load":   js.FuncOf(load),
		"list":   js.FuncOf(list),
		"upsert": js.FuncOf(upsert),
		// Edit session
		"startEdit":  js.FuncOf(startEdit),
		"editAll":    js.FuncOf(editAll),
		"patchDraft": js.FuncOf(patchDraft),
		"discard":    js.FuncOf(discard),
		"reset":      js.FuncOf(reset),
		"drafts":     js.FuncOf(drafts),
		// Saves
		"saveOne": js.FuncOf(saveOne),
		"saveAll": js.FuncOf(saveAll),
		"busy":    js.FuncOf(busy),
		// Change feeds
		"onRecords": js.FuncOf(onRecords),
		"onSession": js.FuncOf(onSession),
	}))

	// Keep alive
	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize builds the engine.
// Args: [configJSON string (optional)]
// Without a baseURL the engine runs against an in-memory SQL store.
func initialize(this js.Value, args []js.Value) interface{} {
	var cfg initConfig
	if len(args) > 0 && args[0].String() != "" {
		if err := json.Unmarshal([]byte(args[0].String()), &cfg); err != nil {
			return errorResult("invalid config json: " + err.Error())
		}
	}

	scope, err := coordinator.ParseLockScope(cfg.LockScope)
	if err != nil {
		return errorResult(err.Error())
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	opts := []coordinator.Option{
		coordinator.WithLogger(logging.New(logCfg)),
		coordinator.WithLockScope(scope),
	}
	if cfg.BulkFallback != nil {
		opts = append(opts, coordinator.WithBulkFallback(*cfg.BulkFallback))
	}
	if cfg.TimeoutMs > 0 {
		opts = append(opts, coordinator.WithTimeout(time.Duration(cfg.TimeoutMs)*time.Millisecond))
	}

	var service coordinator.RecordService
	if cfg.BaseURL != "" {
		service = userapi.NewClient(cfg.BaseURL)
	} else {
		if localStore == nil {
			localStore, err = store.NewSQLStore()
			if err != nil {
				return errorResult("failed to initialize SQL store: " + err.Error())
			}
			if _, err := localStore.Seed(context.Background(), demoUsers); err != nil {
				return errorResult("seed failed: " + err.Error())
			}
		}
		service = localStore
	}

	if engine != nil {
		engine.Close()
	}
	engine = coordinator.New(service, recordstore.New(), editsession.New(), opts...)
	fmt.Println("[usergrid] engine initialized, scope:", scope)
	return successResult("initialized")
}

// load fetches every record.
// Returns: Promise<JSON> with the record list
func load(this js.Value, args []js.Value) interface{} {
	promise, resolve, reject := makePromise()

	go func() {
		if engine == nil {
			reject.Invoke(js.Global().Get("Error").New("load: engine not initialized (call init first)"))
			return
		}
		if err := engine.Load(context.Background()); err != nil {
			reject.Invoke(js.Global().Get("Error").New(fmt.Sprintf("load: %v", err)))
			return
		}
		resolve.Invoke(toJSON(engine.Records().List()))
	}()

	return promise
}

// list returns the canonical records, optionally filtered.
// Args: [query string (optional)]
func list(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return errorResult("engine not initialized")
	}
	out := engine.Records().List()
	if len(args) > 0 && args[0].String() != "" {
		f, err := recordfilter.Compile(args[0].String())
		if err != nil {
			return errorResult("invalid filter: " + err.Error())
		}
		out = f.Apply(out)
	}
	return toJSON(out)
}

// upsert adds or replaces a local row without a backend call.
// Args: [recordJSON string]
func upsert(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("upsert requires 1 arg: recordJSON")
	}
	if engine == nil {
		return errorResult("engine not initialized")
	}
	var r records.Record
	if err := json.Unmarshal([]byte(args[0].String()), &r); err != nil {
		return errorResult("invalid record json: " + err.Error())
	}
	engine.Records().Upsert(r)
	return successResult(fmt.Sprintf("upserted %d", r.ID))
}

// startEdit opens a draft for one row.
// Args: [id int]
func startEdit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("startEdit requires 1 arg: id")
	}
	if engine == nil {
		return errorResult("engine not initialized")
	}
	id := args[0].Int()
	if !engine.StartEdit(id) {
		return errorResult(fmt.Sprintf("unknown record %d", id))
	}
	return successResult(fmt.Sprintf("editing %d", id))
}

func editAll(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return errorResult("engine not initialized")
	}
	n := engine.EditAll()
	return successResult(fmt.Sprintf("editing %d", n))
}

// patchDraft merges a JSON merge patch into an open draft.
// Args: [id int, patchJSON string]
func patchDraft(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("patchDraft requires 2 args: id, patchJSON")
	}
	if engine == nil {
		return errorResult("engine not initialized")
	}
	if err := engine.Edits().PatchDraftJSON(args[0].Int(), []byte(args[1].String())); err != nil {
		return errorResult("patch failed: " + err.Error())
	}
	return successResult("patched")
}

// discard closes one draft without saving.
// Args: [id int]
func discard(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("discard requires 1 arg: id")
	}
	if engine == nil {
		return errorResult("engine not initialized")
	}
	engine.Edits().Discard(args[0].Int())
	return successResult("discarded")
}

func reset(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return errorResult("engine not initialized")
	}
	engine.Edits().Reset()
	return successResult("reset")
}

func drafts(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return errorResult("engine not initialized")
	}
	data, err := response.MarshalSession(editsession.Session{
		Drafts:         engine.Edits().Drafts(),
		BulkInProgress: engine.Edits().IsBulkInProgress(),
	})
	if err != nil {
		return errorResult("drafts failed: " + err.Error())
	}
	return string(data)
}

// saveOne persists one draft.
// Args: [id int]
// Returns: Promise<JSON> {"outcome": "..."}
func saveOne(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("saveOne requires 1 arg: id")
	}
	id := args[0].Int()

	promise, resolve, reject := makePromise()
	go func() {
		if engine == nil {
			reject.Invoke(js.Global().Get("Error").New("saveOne: engine not initialized"))
			return
		}
		outcome, err := engine.SaveOne(context.Background(), id)
		resolve.Invoke(toJSON(response.FromOutcome(outcome, err)))
	}()
	return promise
}

// saveAll persists every draft.
// Returns: Promise<JSON> {"outcome": "..."}
func saveAll(this js.Value, args []js.Value) interface{} {
	promise, resolve, reject := makePromise()
	go func() {
		if engine == nil {
			reject.Invoke(js.Global().Get("Error").New("saveAll: engine not initialized"))
			return
		}
		outcome, err := engine.SaveAll(context.Background())
		resolve.Invoke(toJSON(response.FromOutcome(outcome, err)))
	}()
	return promise
}

func busy(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return errorResult("engine not initialized")
	}
	one, all := engine.Busy()
	return toJSON(map[string]bool{"savingOne": one, "savingAll": all})
}

// onRecords registers a JS callback receiving the record list as JSON.
// Args: [callback function]
func onRecords(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return errorResult("onRecords requires 1 arg: callback")
	}
	if engine == nil {
		return errorResult("engine not initialized")
	}
	cb := args[0]
	cancel := engine.Records().Subscribe(func(list []records.Record) {
		cb.Invoke(toJSON(list))
	})
	return cancelFunc(cancel)
}

// onSession registers a JS callback receiving the edit session as JSON.
// Args: [callback function]
func onSession(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return errorResult("onSession requires 1 arg: callback")
	}
	if engine == nil {
		return errorResult("engine not initialized")
	}
	cb := args[0]
	cancel := engine.Edits().Subscribe(func(s editsession.Session) {
		data, _ := response.MarshalSession(s)
		cb.Invoke(string(data))
	})
	return cancelFunc(cancel)
}

// =============================================================================
// Helpers
// =============================================================================

// cancelFunc wraps an unsubscribe func for JS. Calling it releases itself.
func cancelFunc(cancel func()) js.Func {
	var fn js.Func
	fn = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		cancel()
		fn.Release()
		return nil
	})
	return fn
}

func toJSON(v interface{}) string {
	jsonBytes, _ := json.Marshal(v)
	return string(jsonBytes)
}

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

func makePromise() (promise js.Value, resolve js.Value, reject js.Value) {
	var resolveFn, rejectFn js.Value
	handler := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolveFn = args[0]
		rejectFn = args[1]
		return nil
	})
	defer handler.Release()

	promise = js.Global().Get("Promise").New(handler)
	return promise, resolveFn, rejectFn
}
