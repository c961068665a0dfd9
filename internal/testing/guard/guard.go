package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("KEYSTONE_TEST_MODE") == "" {
			_ = os.Setenv("KEYSTONE_TEST_MODE", "1")
		}
	})
}
