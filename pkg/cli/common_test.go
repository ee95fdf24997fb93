package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/replicate/pload/pkg/optname"
)

func TestEnsureDestinationNotExist(t *testing.T) {
	defer viper.Reset()
	f, err := os.CreateTemp("", "EnsureDestinationNotExist-test-file")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	missing := filepath.Join(t.TempDir(), "unknownFile")

	testCases := []struct {
		name     string
		fileName string
		force    bool
		err      bool
	}{
		{"force true, file exists", f.Name(), true, false},
		{"force false, file exists", f.Name(), false, true},
		{"force true, file does not exist", missing, true, false},
		{"force false, file does not exist", missing, false, false},
		{"stdout", "-", false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			viper.Set(optname.Force, tc.force)
			err := EnsureDestinationNotExist(tc.fileName)
			assert.Equal(t, tc.err, err != nil)
		})
	}
}
