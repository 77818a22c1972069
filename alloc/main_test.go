package alloc

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	// Keep test output readable; individual tests can raise the level.
	logrus.SetLevel(logrus.WarnLevel)
	os.Exit(m.Run())
}
