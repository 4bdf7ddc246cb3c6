// Command httpx-call executes HTTP/1.1 calls through the streaming call
// engine and prints the response entity.
//
//	httpx-call [flags] URL
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "httpx-call: %v\n", err)
		os.Exit(1)
	}
}
