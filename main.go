/*
Copyright © 2025 quangdm
*/
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/quangdm/studyrag-be/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded:", err)
	}
}
