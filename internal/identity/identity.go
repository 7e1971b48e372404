// Package identity derives the bridge's hardware identity and X.509
// certificate from a MAC address, the way the impersonated hardware would.
//
// Grounded on core/security.go's TLS-loader section
// (hardened cert handling, PEM round-tripping) generalized from "load a
// node's TLS config" to "derive and persist a bridge's self-signed identity
// cert" — the surrounding plumbing (PEM encode/decode, atomic file writes)
// follows the same shape.
package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"time"

	"bifrost/internal/berr"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "identity")

var (
	notBefore = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter  = time.Date(2038, 1, 19, 3, 14, 7, 0, time.UTC)
)

// BridgeIDRaw computes the 8-byte EUI-64-style bridge id from a 6-byte MAC:
// [m0,m1,m2,0xFF,0xFE,m3,m4,m5].
func BridgeIDRaw(mac [6]byte) [8]byte {
	return [8]byte{mac[0], mac[1], mac[2], 0xFF, 0xFE, mac[3], mac[4], mac[5]}
}

// BridgeID returns the lowercase-hex string form of BridgeIDRaw.
func BridgeID(mac [6]byte) string {
	raw := BridgeIDRaw(mac)
	return hex.EncodeToString(raw[:])
}

// Identity bundles the private key and certificate bifrost presents to
// clients.
type Identity struct {
	BridgeID    string
	Key         *ecdsa.PrivateKey
	Certificate *x509.Certificate
	DER         []byte
}

// Load reads an identity PEM file if present and validates its CN against
// the MAC-derived bridge id, or generates and persists a fresh one.
func Load(path string, mac [6]byte) (*Identity, error) {
	wantID := BridgeID(mac)

	if data, err := os.ReadFile(path); err == nil {
		id, err := parsePEM(data)
		if err != nil {
			return nil, &berr.CertificateInvalid{Path: path, Reason: err.Error()}
		}
		if id.Certificate.Subject.CommonName != wantID {
			return nil, &berr.CertificateInvalid{
				Path:   path,
				Reason: fmt.Sprintf("cn %q != expected %q", id.Certificate.Subject.CommonName, wantID),
			}
		}
		log.WithField("bridge_id", wantID).Info("loaded existing bridge identity")
		return id, nil
	}

	log.WithField("bridge_id", wantID).Info("generating new bridge identity")
	id, err := generate(mac)
	if err != nil {
		return nil, err
	}
	if err := save(path, id); err != nil {
		return nil, err
	}
	return id, nil
}

// Inspect reads an identity PEM file without verifying its CN against any
// MAC, for tooling that wants to report on whatever identity is on disk.
func Inspect(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	id, err := parsePEM(data)
	if err != nil {
		return nil, &berr.CertificateInvalid{Path: path, Reason: err.Error()}
	}
	return id, nil
}

func generate(mac [6]byte) (*Identity, error) {
	bridgeID := BridgeID(mac)
	raw := BridgeIDRaw(mac)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	subject := pkix.Name{
		CommonName:   bridgeID,
		Organization: []string{"Philips Hue"},
		Country:      []string{"NL"},
	}

	spkiDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal spki: %w", err)
	}
	skid := sha1Sum(spkiBitString(spkiDER))

	serial := new(big.Int).SetBytes(raw[:])

	akiExt, err := authorityKeyIdentifierExtension(skid, subject, serial)
	if err != nil {
		return nil, fmt.Errorf("build authority key identifier: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		Issuer:                subject,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  false,
		SubjectKeyId:          skid,
		ExtraExtensions:       []pkix.Extension{akiExt},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse generated certificate: %w", err)
	}

	return &Identity{BridgeID: bridgeID, Key: key, Certificate: cert, DER: der}, nil
}

// spkiBitString extracts the raw BIT STRING payload (the public key bits)
// from a PKIX-encoded SubjectPublicKeyInfo, since SubjectKeyIdentifier is
// defined as SHA-1 over that bit string, not the whole SPKI DER.
func spkiBitString(spkiDER []byte) []byte {
	var spki struct {
		Algorithm asn1.RawValue
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(spkiDER, &spki); err != nil {
		return spkiDER
	}
	return spki.PublicKey.Bytes
}

func sha1Sum(b []byte) []byte {
	sum := sha1.Sum(b)
	return sum[:]
}

// oidAuthorityKeyIdentifier is 2.5.29.35 (RFC 5280 §4.2.1.1).
var oidAuthorityKeyIdentifier = asn1.ObjectIdentifier{2, 5, 29, 35}

// authorityKeyIdentifierExtension builds the full three-field AKI extension
// the spec calls for (keyIdentifier, authorityCertIssuer, authorityCertSerialNumber)
// instead of the keyIdentifier-only form x509.Certificate.AuthorityKeyId
// produces. Self-signed, so the issuer directoryName is the cert's own
// subject and the serial is the cert's own serial.
func authorityKeyIdentifierExtension(skid []byte, issuer pkix.Name, serial *big.Int) (pkix.Extension, error) {
	rdnDER, err := asn1.Marshal(issuer.ToRDNSequence())
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("marshal issuer rdn sequence: %w", err)
	}
	// GeneralName's directoryName alternative ([4]) explicitly tags the Name
	// CHOICE per X.680 (implicit tagging cannot apply to a CHOICE type).
	generalName := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 4, IsCompound: true, Bytes: rdnDER}
	generalNameDER, err := asn1.Marshal(generalName)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("marshal general name: %w", err)
	}
	// GeneralNames ::= SEQUENCE OF GeneralName, implicitly [1]-tagged as
	// authorityCertIssuer.
	issuerField := asn1.RawValue{
		Class: asn1.ClassContextSpecific, Tag: 1, IsCompound: true, Bytes: generalNameDER,
	}

	serialDER, err := asn1.Marshal(serial)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("marshal serial: %w", err)
	}
	var serialRaw asn1.RawValue
	if _, err := asn1.Unmarshal(serialDER, &serialRaw); err != nil {
		return pkix.Extension{}, fmt.Errorf("unwrap serial der: %w", err)
	}
	// authorityCertSerialNumber ::= [2] IMPLICIT CertificateSerialNumber:
	// same content octets as the plain INTEGER, tag swapped to [2].
	serialField := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 2, IsCompound: false, Bytes: serialRaw.Bytes}

	keyIDField := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: false, Bytes: skid}

	body, err := asn1.Marshal(struct {
		KeyID  asn1.RawValue
		Issuer asn1.RawValue
		Serial asn1.RawValue
	}{keyIDField, issuerField, serialField})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("marshal authority key identifier sequence: %w", err)
	}

	return pkix.Extension{Id: oidAuthorityKeyIdentifier, Value: body}, nil
}

func save(path string, id *Identity) error {
	keyDER, err := x509.MarshalPKCS8PrivateKey(id.Key)
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	var out []byte
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})...)
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: id.DER})...)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("write temp identity file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp identity file: %w", err)
	}
	return nil
}

func parsePEM(data []byte) (*Identity, error) {
	var keyDER, certDER []byte
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "PRIVATE KEY":
			keyDER = block.Bytes
		case "CERTIFICATE":
			if certDER == nil {
				certDER = block.Bytes
			}
		}
	}
	if certDER == nil {
		return nil, fmt.Errorf("no certificate block found")
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	id := &Identity{BridgeID: cert.Subject.CommonName, Certificate: cert, DER: certDER}
	if keyDER != nil {
		k, err := x509.ParsePKCS8PrivateKey(keyDER)
		if err != nil {
			return nil, fmt.Errorf("parse key: %w", err)
		}
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not ECDSA")
		}
		id.Key = ec
	}
	return id, nil
}
