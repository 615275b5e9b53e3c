package tx

import (
	"encoding/json"
	"testing"
)

// FuzzTxUnmarshal tests that arbitrary JSON input does not panic
// when unmarshaled into a Transaction struct.
func FuzzTxUnmarshal(f *testing.F) {
	f.Add([]byte(`{"checker":"money","inputs":[{"ref":"0000000000000000000000000000000000000000000000000000000000000000","witness":""}],"outputs":[{"owner":{"type":3,"data":""},"payload":{"type_id":"636f6900","data":"00"}}]}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"inputs":null,"outputs":null}`))
	f.Add([]byte(`{"inputs":[{"ref":"","witness":"zz"}],"outputs":[{}]}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var tx Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return
		}
		// If unmarshal succeeded, these must not panic.
		tx.Hash()
		tx.Validate()
		if _, err := Decode(tx.Encode()); err != nil {
			t.Fatalf("re-decoding own encoding failed: %v", err)
		}
	})
}

// FuzzDecode checks that the binary decoder is total.
func FuzzDecode(f *testing.F) {
	f.Add(sampleTx().Encode())
	f.Add([]byte{})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, data []byte) {
		tx, err := Decode(data)
		if err != nil {
			return
		}
		// Anything that decodes must re-encode to the same bytes.
		if string(tx.Encode()) != string(data) {
			t.Fatal("decode/encode is not canonical")
		}
	})
}
