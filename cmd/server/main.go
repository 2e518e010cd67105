package main

import (
	"log"

	"phpayroll/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
