// Command genkeys generates the RSA key pair used for token signatures and
// writes it as PEM files, ready to be referenced by PRIVATE_KEY_PATH and
// PUBLIC_KEY_PATH.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"log"
	"os"
)

func main() {
	privPath := flag.String("private", "jwt-private.pem", "output path for the private key")
	pubPath := flag.String("public", "jwt-public.pem", "output path for the public key")
	bits := flag.Int("bits", 2048, "RSA key size")
	flag.Parse()

	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatalf("generating key: %v", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(*privPath, privPEM, 0600); err != nil {
		log.Fatalf("writing %s: %v", *privPath, err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		log.Fatalf("marshaling public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(*pubPath, pubPEM, 0644); err != nil {
		log.Fatalf("writing %s: %v", *pubPath, err)
	}

	log.Printf("wrote %s and %s", *privPath, *pubPath)
}
