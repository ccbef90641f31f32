// Command flatfs formats and inspects flatfs disk images.
package main

import (
	"log"
	"os"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("FATAL %v", err)
	}
	if err := newApp(cfg).Run(os.Args); err != nil {
		log.Fatalf("FATAL %v", err)
	}
}
