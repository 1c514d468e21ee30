// Mnemonic:	dlog
// Abstract:	Package-level logger factory. Tegu hands every manager its own
//		"sheep" (a bleater.Bleater) at construction time so each manager's
//		verbosity can be tuned independently (see gizmos/init.go's
//		obj_sheep/Get_sheep/Set_bleat_level). This package gives every
//		freight-dispatch manager the same shape using zap instead of the
//		private bleater package.
package dlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu   sync.Mutex
	root *zap.Logger
)

// Init installs the process-wide root logger. Called once from cmd/dispatchd's
// main before any manager is constructed. Subsequent calls replace the root
// for loggers obtained afterward only.
func Init(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
}

func rootLogger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		root = zap.NewNop()
	}
	return root
}

// For returns a named child logger, mirroring tegu's "Add_child" sheep
// hierarchy: one logger per manager (resmgr, allocator, roundsvc, ...),
// each prefixed with its component name.
func For(component string) *zap.SugaredLogger {
	return rootLogger().Named(component).Sugar()
}

// NewDevelopment builds a human-readable logger for local runs and tests.
func NewDevelopment() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewProduction builds a JSON logger for deployed runs.
func NewProduction() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
