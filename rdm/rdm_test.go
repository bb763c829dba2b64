package rdm

import "testing"

func TestVerifyChecksum(t *testing.T) {
	body := []byte{StartCodeRDM, SubStartCodeMessage, 0x05, 0x11, 0x22, 0x33}
	sum := Checksum16(body)
	buf := append(append([]byte{}, body...), byte(sum>>8), byte(sum&0xFF))

	if !VerifyChecksum(buf, len(body)) {
		t.Fatal("expected checksum to verify")
	}

	buf[len(buf)-1]++
	if VerifyChecksum(buf, len(body)) {
		t.Fatal("expected corrupted checksum to fail verification")
	}
}

func TestValidateMessageLength(t *testing.T) {
	cases := []struct {
		length int
		ok     bool
	}{
		{2, false},
		{3, true},
		{RdmFrameSize - 2, true},
		{RdmFrameSize - 1, false},
		{1000, false},
	}

	for _, c := range cases {
		err := ValidateMessageLength(c.length)
		if (err == nil) != c.ok {
			t.Errorf("ValidateMessageLength(%d): got err=%v, want ok=%v", c.length, err, c.ok)
		}
	}
}
