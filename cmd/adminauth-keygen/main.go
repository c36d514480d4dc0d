// Command adminauth-keygen generates the secrets an adminauth deployment
// needs: a random token signing key and, optionally, a bcrypt hash for
// seeding an initial admin password.
//
//	adminauth-keygen                      # 32-byte signing key, base64
//	adminauth-keygen -bytes 64            # longer key
//	adminauth-keygen -password 's3cret'   # print a bcrypt hash too
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	size := flag.Int("bytes", 32, "signing key length in bytes (minimum 32)")
	cost := flag.Int("cost", 12, "bcrypt cost for -password")
	pass := flag.String("password", "", "also print a bcrypt hash of this password")
	flag.Parse()

	if *size < 32 {
		log.Fatal("signing keys shorter than 32 bytes are rejected at startup")
	}

	key := make([]byte, *size)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("generate key: %v", err)
	}
	fmt.Printf("ADMINAUTH_TOKEN_SECRET=%s\n", base64.StdEncoding.EncodeToString(key))

	if *pass != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*pass), *cost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Printf("password_hash=%s\n", hash)
	}
}
