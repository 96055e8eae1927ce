package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	encryptionFilePath = "META-INF/encryption.xml"
	// sinf.xml only appears in Apple FairPlay packages.
	sinfFilePath = "META-INF/sinf.xml"
)

// Font obfuscation algorithm URIs. These do not hide page content.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true,
	"http://ns.adobe.com/pdf/enc#RC":     true,
}

type xmlEncryption struct {
	XMLName       xml.Name           `xml:"encryption"`
	EncryptedData []xmlEncryptedData `xml:"EncryptedData"`
}

type xmlEncryptedData struct {
	EncryptionMethod struct {
		Algorithm string `xml:"Algorithm,attr"`
	} `xml:"EncryptionMethod"`
	CipherReference struct {
		URI string `xml:"URI,attr"`
	} `xml:"CipherData>CipherReference"`
}

// CheckEncryption returns an error wrapping ErrEncrypted when the package
// still carries content encryption. Font obfuscation alone is accepted.
func CheckEncryption(r *EPUBReader) error {
	if _, ok := r.findInsensitive(sinfFilePath); ok {
		return fmt.Errorf("%w: FairPlay (%s present)", ErrEncrypted, sinfFilePath)
	}

	name, ok := r.findInsensitive(encryptionFilePath)
	if !ok {
		return nil
	}
	data, err := r.ReadFile(name)
	if err != nil {
		return err
	}

	var enc xmlEncryption
	if err := xml.Unmarshal(bytes.TrimSpace(stripBOM(data)), &enc); err != nil {
		return fmt.Errorf("%w: unreadable %s: %w", ErrEncrypted, encryptionFilePath, err)
	}

	for _, ed := range enc.EncryptedData {
		if fontObfuscationAlgorithms[ed.EncryptionMethod.Algorithm] {
			continue
		}
		return fmt.Errorf("%w: %s encrypted with %s", ErrEncrypted, ed.CipherReference.URI, ed.EncryptionMethod.Algorithm)
	}
	return nil
}
