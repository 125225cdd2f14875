package classify

import (
	"testing"

	"github.com/HerbHall/dhcplens/pkg/models"
)

func TestClassifyByFingerprint_countBuckets(t *testing.T) {
	tests := []struct {
		name        string
		fingerprint string
		want        models.DeviceType
	}{
		{"minimal", "1,3,6", models.DeviceTypeIoT},
		{"smart", "1,3,6,15", models.DeviceTypeSmartDevice},
		{"mobile", "1,3,6,15,26,28,51", models.DeviceTypePhone},
		{"complex", "1,3,6,15,26,28,51,58,59,43,44", models.DeviceTypeComputer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := ClassifyByFingerprint(tt.fingerprint, "", "")
			if !ok {
				t.Fatal("expected a result")
			}
			if res.DeviceType != tt.want {
				t.Errorf("DeviceType = %q, want %q", res.DeviceType, tt.want)
			}
			if res.Basis != BasisCount {
				t.Errorf("Basis = %q, want %q", res.Basis, BasisCount)
			}
			if res.Confidence != models.ConfidenceLow {
				t.Errorf("Confidence = %q, want low", res.Confidence)
			}
		})
	}
}

func TestClassifyByFingerprint_vendorClassShortcut(t *testing.T) {
	res, ok := ClassifyByFingerprint("1,3,6,15,26,28,51,58,59,43", "PS5 Network Client", "")
	if !ok {
		t.Fatal("expected a result")
	}
	if res.DeviceType != models.DeviceTypeGamingConsole {
		t.Errorf("DeviceType = %q", res.DeviceType)
	}
	if res.Basis != BasisSignature {
		t.Errorf("Basis = %q, want signature", res.Basis)
	}
	if res.Confidence != models.ConfidenceMedium {
		t.Errorf("Confidence = %q, want medium", res.Confidence)
	}

	res, _ = ClassifyByFingerprint("1,3,6,15", "Roku DVP", "")
	if res.DeviceType != models.DeviceTypeStreaming {
		t.Errorf("streaming shortcut = %q", res.DeviceType)
	}
}

func TestClassifyByFingerprint_vendorRefinement(t *testing.T) {
	res, _ := ClassifyByFingerprint("1,3", "", "Espressif Inc.")
	if res.DeviceType != models.DeviceTypeIoT || res.Basis != BasisRefined {
		t.Errorf("espressif refinement = %+v", res)
	}

	res, _ = ClassifyByFingerprint("1,3,6,15", "", "Amazon Technologies Inc.")
	if res.DeviceType != models.DeviceTypeSmartSpeaker {
		t.Errorf("amazon refinement = %q", res.DeviceType)
	}

	res, _ = ClassifyByFingerprint("1,3,6,15,26,28,51", "", "Apple, Inc.")
	if res.DeviceType != models.DeviceTypePhone || res.Basis != BasisRefined {
		t.Errorf("apple refinement = %+v", res)
	}

	res, _ = ClassifyByFingerprint("1,15,3,6,44,46,47,31,33,121,249,43", "MSFT 5.0", "")
	if res.DeviceType != models.DeviceTypeComputer || res.Basis != BasisRefined {
		t.Errorf("windows refinement = %+v", res)
	}
}

func TestClassifyByFingerprint_noFingerprint(t *testing.T) {
	if _, ok := ClassifyByFingerprint("", "MSFT 5.0", "Microsoft"); ok {
		t.Error("expected no result without a fingerprint")
	}
	if _, ok := ClassifyByFingerprint("   ", "", ""); ok {
		t.Error("expected no result for blank fingerprint")
	}
}
