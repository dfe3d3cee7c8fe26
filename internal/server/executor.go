package server

import (
	"os"
	"runtime"
	"strings"

	"github.com/redistill/redistill/internal/eviction"
	"github.com/redistill/redistill/internal/metrics"
	"github.com/redistill/redistill/internal/proto"
	"github.com/redistill/redistill/internal/store"
	"github.com/redistill/redistill/internal/util"
)

// serverVersion is reported in INFO's Server section. There is no release
// process for this port yet, so it is a fixed placeholder string.
const serverVersion = "0.1.0"

// Executor is a pure function from (store, argv, connection state, now) to
// bytes appended to the writer, plus the shared collaborators it needs to
// do that: the eviction controller and process-wide counters. One Executor
// is shared by every connection; it holds no per-connection state itself.
type Executor struct {
	store    *store.ShardArray
	evict    *eviction.Controller
	counters *metrics.Counters

	password  string
	maxMemory uint64
}

// NewExecutor builds an Executor bound to the shared keyspace, eviction
// controller and counters. password == "" means no AUTH is required.
func NewExecutor(st *store.ShardArray, ev *eviction.Controller, c *metrics.Counters, password string, maxMemory uint64) *Executor {
	return &Executor{
		store:     st,
		evict:     ev,
		counters:  c,
		password:  password,
		maxMemory: maxMemory,
	}
}

// PasswordConfigured reports whether AUTH is required for new connections.
func (e *Executor) PasswordConfigured() bool { return e.password != "" }

// Execute dispatches one parsed command, appending its reply to w. It always
// increments total_commands exactly once, regardless of outcome.
func (e *Executor) Execute(argv [][]byte, state *ConnectionState, now int64, w *proto.Writer) {
	e.counters.TotalCommands.Add(1)

	if len(argv) == 0 {
		w.WriteError("unknown command")
		return
	}

	name := strings.ToUpper(string(argv[0]))

	if name != "PING" && name != "AUTH" && !state.authenticated {
		w.WriteRawError("NOAUTH Authentication required")
		return
	}

	switch name {
	case "PING":
		e.cmdPing(argv, w)
	case "AUTH":
		e.cmdAuth(argv, state, w)
	case "SET":
		e.cmdSet(argv, now, w)
	case "GET":
		e.cmdGet(argv, now, w)
	case "DEL":
		e.cmdDel(argv, w)
	case "EXISTS":
		e.cmdExists(argv, now, w)
	case "KEYS":
		e.cmdKeys(argv, now, w)
	case "DBSIZE":
		e.cmdDBSize(argv, w)
	case "FLUSHDB":
		e.cmdFlushDB(argv, w)
	case "INFO":
		e.cmdInfo(argv, w)
	case "CONFIG", "COMMAND":
		w.WriteRaw(proto.EmptyArray)
	default:
		w.WriteError("unknown command")
	}
}

func (e *Executor) cmdPing(argv [][]byte, w *proto.Writer) {
	if len(argv) != 1 {
		w.WriteError("wrong number of arguments for 'ping' command")
		return
	}
	w.WriteSimpleString("PONG")
}

func (e *Executor) cmdAuth(argv [][]byte, state *ConnectionState, w *proto.Writer) {
	if len(argv) != 2 {
		w.WriteError("wrong number of arguments for 'auth' command")
		return
	}
	if e.password == "" {
		w.WriteError("Client sent AUTH, but no password is set")
		return
	}
	if string(argv[1]) != e.password {
		w.WriteError("invalid password")
		return
	}
	state.authenticated = true
	w.WriteSimpleString("OK")
}

// cmdSet implements `SET <k> <v> [EX <ttl>]`. The EX keyword match is a
// guard on whether to assign a TTL, not a condition on whether to perform
// the set at all: a 5-argv SET whose 4th argument isn't "EX" still stores
// the value with no TTL applied, the same way a parsed TTL of 0 does. Both
// are asymmetries with the shard layer's own ttl=0 semantics, preserved
// deliberately rather than fixed.
func (e *Executor) cmdSet(argv [][]byte, now int64, w *proto.Writer) {
	if len(argv) != 3 && len(argv) != 5 {
		w.WriteError("wrong number of arguments for 'set' command")
		return
	}
	key, value := string(argv[1]), argv[2]

	var hasTTL bool
	var ttl uint64
	if len(argv) == 5 && strings.EqualFold(string(argv[3]), "EX") {
		ttl = parseLeadingDigits(argv[4])
		hasTTL = ttl != 0
	}

	needed := len(key) + len(value) + 64
	if e.evict.Enabled() && !e.evict.Admit(e.store, needed) {
		w.WriteRawError("ERR OOM command not allowed when used memory > 'maxmemory'")
		return
	}

	e.store.Set(key, cloneBytes(value), hasTTL, ttl, now)
	if e.evict.Enabled() {
		e.counters.AddMemory(int64(needed))
	}
	w.WriteSimpleString("OK")
}

// parseLeadingDigits scans b for a leading run of ASCII digits, stopping at
// the first non-digit rather than erroring. An empty or all-non-digit input
// yields 0.
func parseLeadingDigits(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + uint64(c-'0')
	}
	return v
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (e *Executor) cmdGet(argv [][]byte, now int64, w *proto.Writer) {
	if len(argv) != 2 {
		w.WriteError("wrong number of arguments for 'get' command")
		return
	}
	value, ok := e.store.Get(string(argv[1]), now)
	if ok {
		e.counters.KeyspaceHits.Add(1)
		w.WriteBulkString(value)
		return
	}
	e.counters.KeyspaceMisses.Add(1)
	w.WriteNullBulk()
}

func (e *Executor) cmdDel(argv [][]byte, w *proto.Writer) {
	if len(argv) < 2 {
		w.WriteError("wrong number of arguments for 'del' command")
		return
	}
	keys := make([]string, len(argv)-1)
	for i, k := range argv[1:] {
		keys[i] = string(k)
	}
	w.WriteInteger(e.store.Delete(keys))
}

func (e *Executor) cmdExists(argv [][]byte, now int64, w *proto.Writer) {
	if len(argv) < 2 {
		w.WriteError("wrong number of arguments for 'exists' command")
		return
	}
	keys := make([]string, len(argv)-1)
	for i, k := range argv[1:] {
		keys[i] = string(k)
	}
	w.WriteInteger(e.store.Exists(keys, now))
}

func (e *Executor) cmdKeys(argv [][]byte, now int64, w *proto.Writer) {
	if len(argv) != 1 {
		w.WriteError("wrong number of arguments for 'keys' command")
		return
	}
	keys := e.store.Keys(now)
	items := make([][]byte, len(keys))
	for i, k := range keys {
		items[i] = []byte(k)
	}
	w.WriteBulkArray(items)
}

func (e *Executor) cmdDBSize(argv [][]byte, w *proto.Writer) {
	if len(argv) != 1 {
		w.WriteError("wrong number of arguments for 'dbsize' command")
		return
	}
	w.WriteInteger(e.store.Len())
}

func (e *Executor) cmdFlushDB(argv [][]byte, w *proto.Writer) {
	if len(argv) != 1 {
		w.WriteError("wrong number of arguments for 'flushdb' command")
		return
	}
	e.store.Clear()
	if e.evict.Enabled() {
		e.counters.MemoryUsed.Store(0)
	}
	w.WriteSimpleString("OK")
}

func (e *Executor) cmdInfo(argv [][]byte, w *proto.Writer) {
	if len(argv) != 1 {
		w.WriteError("wrong number of arguments for 'info' command")
		return
	}
	w.WriteBulkString([]byte(e.renderInfo()))
}

func (e *Executor) renderInfo() string {
	var b strings.Builder

	usedMemory := e.counters.MemoryUsed.Load()
	maxMemoryHuman := "unlimited"
	if e.maxMemory > 0 {
		maxMemoryHuman = util.HumanBytes(e.maxMemory)
	}

	b.WriteString("# Server\r\n")
	b.WriteString("redis_version:" + serverVersion + "\r\n")
	b.WriteString("redis_mode:standalone\r\n")
	b.WriteString("os:" + runtime.GOOS + "\r\n")
	b.WriteString("arch_bits:64\r\n")
	b.WriteString("process_id:" + itoa(os.Getpid()) + "\r\n")
	b.WriteString("uptime_in_seconds:" + itoa64(e.counters.UptimeSeconds()) + "\r\n")

	b.WriteString("# Clients\r\n")
	b.WriteString("connected_clients:" + itoa64(e.counters.ActiveConnections.Load()) + "\r\n")

	b.WriteString("# Memory\r\n")
	b.WriteString("used_memory:" + uitoa(usedMemory) + "\r\n")
	b.WriteString("used_memory_human:" + util.HumanBytes(usedMemory) + "\r\n")
	b.WriteString("maxmemory:" + uitoa(e.maxMemory) + "\r\n")
	b.WriteString("maxmemory_human:" + maxMemoryHuman + "\r\n")
	b.WriteString("maxmemory_policy:" + e.evict.PolicyName() + "\r\n")
	b.WriteString("evicted_keys:" + uitoa(e.counters.EvictedKeys.Load()) + "\r\n")

	b.WriteString("# Stats\r\n")
	b.WriteString("total_connections_received:" + uitoa(e.counters.TotalConnections.Load()) + "\r\n")
	b.WriteString("total_commands_processed:" + uitoa(e.counters.TotalCommands.Load()) + "\r\n")
	b.WriteString("rejected_connections:" + uitoa(e.counters.RejectedConnections.Load()) + "\r\n")
	b.WriteString("keyspace_hits:" + uitoa(e.counters.KeyspaceHits.Load()) + "\r\n")
	b.WriteString("keyspace_misses:" + uitoa(e.counters.KeyspaceMisses.Load()) + "\r\n")

	b.WriteString("# Keyspace\r\n")
	b.WriteString("db0:keys=" + itoa(e.store.Len()) + ",expires=0,avg_ttl=0\r\n")

	return b.String()
}
