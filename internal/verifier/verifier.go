// Package verifier checks that copied files match their sources.
package verifier

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/dbsmedya/goreconcile/internal/fsutil"
	"github.com/dbsmedya/goreconcile/internal/logger"
)

// VerificationMethod defines how a copy is compared with its source.
type VerificationMethod string

const (
	// MethodSize compares file sizes (fast)
	MethodSize VerificationMethod = "size"
	// MethodSHA256 compares SHA256 digests of both files (reads every byte twice)
	MethodSHA256 VerificationMethod = "sha256"
	// MethodSkip skips verification entirely
	MethodSkip VerificationMethod = "skip"
)

// VerifyResult holds the outcome for a single copied file.
type VerifyResult struct {
	Source       string
	Destination  string
	Method       VerificationMethod
	SourceSize   int64
	DestSize     int64
	SourceHash   string
	DestHash     string
	Match        bool
	ErrorMessage string
}

// VerifyStats contains overall verification statistics.
type VerifyStats struct {
	FilesVerified int
	FilesPassed   int
	FilesFailed   int
	TotalBytes    int64
	Method        VerificationMethod
}

// Verifier compares copies with their sources on a single filesystem.
type Verifier struct {
	fs     afero.Fs
	method VerificationMethod
	stats  VerifyStats
	logger *logger.Logger
}

// NewVerifier creates a verifier. An empty method defaults to MethodSize.
func NewVerifier(fs afero.Fs, method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	if method == "" {
		method = MethodSize
	}
	switch method {
	case MethodSize, MethodSHA256, MethodSkip:
	default:
		return nil, fmt.Errorf("unsupported verification method: %s", method)
	}

	return &Verifier{
		fs:     fs,
		method: method,
		stats:  VerifyStats{Method: method},
		logger: log,
	}, nil
}

// VerifyFile compares dst with src using the configured method.
// A mismatch is reported through the result; the error is reserved for
// files that could not be read.
func (v *Verifier) VerifyFile(src, dst string) (*VerifyResult, error) {
	if v.method == MethodSkip {
		return &VerifyResult{Source: src, Destination: dst, Method: MethodSkip, Match: true}, nil
	}

	result, err := v.compare(src, dst)
	if err != nil {
		return nil, fmt.Errorf("verification failed for %s: %w", dst, err)
	}

	v.stats.FilesVerified++
	v.stats.TotalBytes += result.SourceSize
	if result.Match {
		v.stats.FilesPassed++
		v.logger.Debugw("Verification passed", "destination", dst, "method", v.method)
	} else {
		v.stats.FilesFailed++
		v.logger.Errorw("Verification FAILED", "destination", dst, "reason", result.ErrorMessage)
	}

	return result, nil
}

func (v *Verifier) compare(src, dst string) (*VerifyResult, error) {
	srcInfo, err := v.fs.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	dstInfo, err := v.fs.Stat(dst)
	if err != nil {
		return nil, fmt.Errorf("stat destination: %w", err)
	}

	result := &VerifyResult{
		Source:      src,
		Destination: dst,
		Method:      v.method,
		SourceSize:  srcInfo.Size(),
		DestSize:    dstInfo.Size(),
		Match:       srcInfo.Size() == dstInfo.Size(),
	}
	if !result.Match {
		result.ErrorMessage = fmt.Sprintf("size mismatch: source=%d, dest=%d", result.SourceSize, result.DestSize)
		return result, nil
	}

	if v.method == MethodSHA256 {
		if result.SourceHash, err = fsutil.HashFile(v.fs, src); err != nil {
			return nil, fmt.Errorf("hash source: %w", err)
		}
		if result.DestHash, err = fsutil.HashFile(v.fs, dst); err != nil {
			return nil, fmt.Errorf("hash destination: %w", err)
		}
		if result.SourceHash != result.DestHash {
			result.Match = false
			result.ErrorMessage = fmt.Sprintf("hash mismatch: source=%s, dest=%s", result.SourceHash[:16], result.DestHash[:16])
		}
	}

	return result, nil
}

// Stats returns the counters accumulated so far.
func (v *Verifier) Stats() VerifyStats {
	return v.stats
}

// GetMethod returns the configured verification method.
func (v *Verifier) GetMethod() VerificationMethod {
	return v.method
}
