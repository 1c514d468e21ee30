// Mnemonic:	main
// Abstract:	Process entry point. Mirrors main/tegu.go's overall shape
//		(parse flags/config, build the managers, start their goroutines,
//		block until signaled) but bootstraps through spf13/cobra instead
//		of the flag package, and the managers are the freight-dispatch
//		set (CarBook, Allocator, RoundService, DispatchActions,
//		TimeoutWorker) instead of tegu's network/reservation managers.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
