package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/hash-token.go <token>\n")
		os.Exit(1)
	}

	sum := sha256.Sum256([]byte(os.Args[1]))
	fmt.Println(hex.EncodeToString(sum[:]))
}
