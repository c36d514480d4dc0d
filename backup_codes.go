package adminauth

import (
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"strings"
)

// backupCodeAlphabet excludes 0/O/1/I to keep transcription unambiguous.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const backupCodeGroupSize = 4

func newBackupCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(backupCodeAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// formatBackupCode groups the raw code into 4-character blocks joined by
// dashes, e.g. "AB12CD34EF56GH78" -> "AB12-CD34-EF56-GH78".
func formatBackupCode(code string) string {
	if len(code) <= backupCodeGroupSize {
		return code
	}
	var b strings.Builder
	b.Grow(len(code) + len(code)/backupCodeGroupSize)
	for i := 0; i < len(code); i += backupCodeGroupSize {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + backupCodeGroupSize
		if end > len(code) {
			end = len(code)
		}
		b.WriteString(code[i:end])
	}
	return b.String()
}

// canonicalizeBackupCode normalizes user input: uppercase, separators and
// whitespace stripped. The canonical form is what gets hashed and compared.
func canonicalizeBackupCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// backupCodeHash binds the hash to the principal so equal codes issued to
// different accounts never collide in storage.
func backupCodeHash(principalID, canonicalCode string) [32]byte {
	data := make([]byte, 0, len(principalID)+1+len(canonicalCode))
	data = append(data, principalID...)
	data = append(data, 0)
	data = append(data, canonicalCode...)
	return sha256.Sum256(data)
}

// generateBackupCodes returns cfg.BackupCodeCount fresh codes: the formatted
// display forms and the hashed records to persist, index-aligned.
func generateBackupCodes(cfg MFAConfig, principalID string) ([]string, []BackupCodeRecord, error) {
	codes := make([]string, 0, cfg.BackupCodeCount)
	records := make([]BackupCodeRecord, 0, cfg.BackupCodeCount)
	for i := 0; i < cfg.BackupCodeCount; i++ {
		raw, err := newBackupCode(cfg.BackupCodeLength)
		if err != nil {
			return nil, nil, err
		}
		codes = append(codes, formatBackupCode(raw))
		records = append(records, BackupCodeRecord{Hash: backupCodeHash(principalID, raw)})
	}
	return codes, records, nil
}
