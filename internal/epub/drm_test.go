package epub

import (
	"errors"
	"testing"
)

func TestCheckEncryption(t *testing.T) {
	tests := []struct {
		name    string
		entries []testEntry
		wantErr bool
	}{
		{
			name:    "no encryption.xml",
			entries: []testEntry{{name: "META-INF/container.xml", body: testContainerXML}},
		},
		{
			name: "font obfuscation only",
			entries: []testEntry{{name: "META-INF/encryption.xml", body: `<?xml version="1.0"?>
<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container" xmlns:enc="http://www.w3.org/2001/04/xmlenc#">
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://www.idpf.org/2008/embedding"/>
    <enc:CipherData><enc:CipherReference URI="OEBPS/fonts/a.otf"/></enc:CipherData>
  </enc:EncryptedData>
</encryption>`}},
		},
		{
			name: "adept encrypted page",
			entries: []testEntry{{name: "META-INF/encryption.xml", body: `<?xml version="1.0"?>
<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container" xmlns:enc="http://www.w3.org/2001/04/xmlenc#">
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://www.w3.org/2001/04/xmlenc#aes128-cbc"/>
    <enc:CipherData><enc:CipherReference URI="OEBPS/Images/p1.jpg"/></enc:CipherData>
  </enc:EncryptedData>
</encryption>`}},
			wantErr: true,
		},
		{
			name:    "fairplay",
			entries: []testEntry{{name: "META-INF/sinf.xml", body: `<fairplay/>`}},
			wantErr: true,
		},
		{
			name:    "unparsable encryption.xml",
			entries: []testEntry{{name: "META-INF/encryption.xml", body: `<encryption`}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := openTestEPUB(t, tt.entries)
			err := CheckEncryption(r)
			if tt.wantErr {
				if !errors.Is(err, ErrEncrypted) {
					t.Fatalf("CheckEncryption() error = %v, want ErrEncrypted", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckEncryption() error = %v", err)
			}
		})
	}
}
