package config

import "github.com/joho/godotenv"

// godotenvLoad loads a .env file from the working directory if present.
// Absence of the file is not an error.
func godotenvLoad() error {
	return godotenv.Load()
}
