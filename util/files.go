package util

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"

	"github.com/pingcap/errors"
)

// MD5File is the hex digest of a file, logged to identify model files.
func MD5File(fileName string) (string, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return "", errors.Trace(err)
	}
	defer file.Close()

	md5 := md5.New()
	if _, err := io.Copy(md5, file); err != nil {
		return "", errors.Annotatef(err, "hashing %s", fileName)
	}

	return fmt.Sprintf("%x", md5.Sum(nil)), nil
}
