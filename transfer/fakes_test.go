package transfer

import (
	"github.com/guildrec/go-vodutils/transfer/gateway"
)

type fakeSignerAPI struct {
	signPutFunc func(key string, length int64, contentType string) (gateway.SignedURL, error)
	signCalls   int
	signedKeys  []string

	createSessionFunc func(key string, length int64, contentType string) (gateway.MultipartSession, error)
	createCalls       int

	completeErr     error
	completeCalls   int
	completedKey    string
	completedTokens []string
}

func (f *fakeSignerAPI) SignPut(key string, length int64, contentType string) (gateway.SignedURL, error) {
	f.signCalls++
	f.signedKeys = append(f.signedKeys, key)
	return f.signPutFunc(key, length, contentType)
}

func (f *fakeSignerAPI) CreateMultipartSession(key string, length int64, contentType string) (gateway.MultipartSession, error) {
	f.createCalls++
	return f.createSessionFunc(key, length, contentType)
}

func (f *fakeSignerAPI) CompleteMultipartSession(key string, orderedTokens []string) error {
	f.completeCalls++
	f.completedKey = key
	f.completedTokens = append([]string{}, orderedTokens...)
	return f.completeErr
}

func (f *fakeSignerAPI) networkCalls() int {
	return f.signCalls + f.createCalls + f.completeCalls
}

type fakeClock struct {
	advances   int
	advanceErr error
}

func (f *fakeClock) Advance() error {
	f.advances++
	return f.advanceErr
}

type fakeSizeAPI struct {
	size int64
	err  error
}

func (f *fakeSizeAPI) ObjectSize(key string) (int64, error) {
	return f.size, f.err
}
