package kss

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core/logger"
)

// FilesystemRoute is the route which serves pre-signed URLs of the local filesystem
const FilesystemRoute = "/kss/filesystem"

// maxUploadSize limits uploads through pre-signed URLs
const maxUploadSize = 20 << 20

// LocalConfiguration contains the configuration for the local filesystem KSS service
type LocalConfiguration struct {
	BasePath string
	// PrivateKeyPEM signs the URLs. If empty, a random key is generated, which only
	// works as long as there is a single instance.
	PrivateKeyPEM string
}

// LocalFilesystem is the entity which provides local filesystem
type LocalFilesystem struct {
	baseFolder string
	publicURL  url.URL
	privateKey *rsa.PrivateKey
}

// NewLocalFilesystem returns a new LocalFilesystem and registers its route on router
func NewLocalFilesystem(router *mux.Router, config LocalConfiguration, publicURL url.URL) (*LocalFilesystem, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("BasePath must not be empty")
	}
	if err := os.MkdirAll(config.BasePath, 0700); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", config.BasePath, err)
	}

	var privateKey *rsa.PrivateKey
	if config.PrivateKeyPEM != "" {
		var err error
		privateKey, err = parsePrivateKey(config.PrivateKeyPEM)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Default().Warn("No private key provided to sign URLs, a random one will be generated")
		logger.Default().Warn("This can only work when running in a single instance configuration")
		var err error
		privateKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
	}
	f := &LocalFilesystem{baseFolder: config.BasePath, publicURL: publicURL, privateKey: privateKey}
	logger.Default().Debugln("filesystem routes enabled")
	logger.Default().Debugln("  handle route:", FilesystemRoute, "GET,PUT,POST")
	router.Handle(FilesystemRoute, http.HandlerFunc(f.handler)).Methods(http.MethodOptions, http.MethodGet, http.MethodPut, http.MethodPost)
	return f, nil
}

func parsePrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("private key is not PEM encoded")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cannot parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not an RSA key")
	}
	return rsaKey, nil
}

// canonical is the signed part of a pre-signed URL
func canonical(method, key, expiry string) []byte {
	hashed := sha256.Sum256([]byte(method + "\n" + key + "\n" + expiry))
	return hashed[:]
}

// GetPreSignedURL returns a pre-signed URL that can be used with the given method until expiry time is passed
func (f *LocalFilesystem) GetPreSignedURL(ctx context.Context, method Method, key string, expireIn time.Duration) (string, error) {
	if err := ValidKey(key); err != nil {
		return "", err
	}
	if method != Get && method != Put {
		return "", fmt.Errorf("%s unsupported method to presign '%s'", method, key)
	}
	expiry := time.Now().Add(expireIn).UTC().Format(time.RFC3339Nano)
	signature, err := rsa.SignPKCS1v15(rand.Reader, f.privateKey, crypto.SHA256, canonical(string(method), key, expiry))
	if err != nil {
		return "", fmt.Errorf("cannot sign url: %w", err)
	}
	v := url.Values{}
	v.Set("key", key)
	v.Set("expiry", expiry)
	v.Set("method", string(method))
	v.Set("signature", base64.RawURLEncoding.EncodeToString(signature))
	u := url.URL{
		Scheme:   f.publicURL.Scheme,
		Host:     f.publicURL.Host,
		Path:     strings.TrimSuffix(f.publicURL.Path, "/") + FilesystemRoute,
		RawQuery: v.Encode(),
	}
	return u.String(), nil
}

// verify checks the signature and expiry of the query of a pre-signed URL
func (f *LocalFilesystem) verify(v url.Values) error {
	key := v.Get("key")
	if err := ValidKey(key); err != nil {
		return err
	}
	expiry, err := time.Parse(time.RFC3339Nano, v.Get("expiry"))
	if err != nil {
		return fmt.Errorf("bad expiry: %w", err)
	}
	if expiry.Before(time.Now()) {
		return errors.New("url has expired")
	}
	signature, err := base64.RawURLEncoding.DecodeString(v.Get("signature"))
	if err != nil {
		return fmt.Errorf("bad signature: %w", err)
	}
	return rsa.VerifyPKCS1v15(&f.privateKey.PublicKey, crypto.SHA256, canonical(v.Get("method"), key, v.Get("expiry")), signature)
}

func (f *LocalFilesystem) path(key string) string {
	return filepath.Join(f.baseFolder, filepath.FromSlash(key))
}

func (f *LocalFilesystem) handler(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	v := r.URL.Query()
	if err := f.verify(v); err != nil {
		rlog.WithError(err).Warnln("rejected pre-signed url")
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}
	key := v.Get("key")
	method := v.Get("method")
	// a PUT signature also allows multipart POST uploads
	if r.Method != method && !(method == http.MethodPut && r.Method == http.MethodPost) {
		rlog.Warnf("signature valid for %s, but was used for %s", method, r.Method)
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}

	filePath := f.path(key)
	rlog.Debugf("filesystem: [%s] key: '%s'", r.Method, key)

	if r.Method == http.MethodGet {
		if _, err := os.Stat(filePath); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filePath)
		return
	}

	var body io.Reader = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if r.Method == http.MethodPost {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			rlog.WithError(err).Errorf("Error 1200: cannot parse multipart form for key '%s'", key)
			http.Error(w, "Error 1200", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			rlog.WithError(err).Errorf("Error 1201: cannot read form file for key '%s'", key)
			http.Error(w, "Error 1201", http.StatusBadRequest)
			return
		}
		defer file.Close()
		body = file
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		rlog.WithError(err).Errorf("Error 1202: cannot create directory for key '%s'", key)
		http.Error(w, "Error 1202", http.StatusInternalServerError)
		return
	}
	dstFile, err := os.Create(filePath)
	if err != nil {
		rlog.WithError(err).Errorf("Error 1203: cannot create file for key '%s'", key)
		http.Error(w, "Error 1203", http.StatusInternalServerError)
		return
	}
	defer dstFile.Close()
	if _, err = io.Copy(dstFile, body); err != nil {
		rlog.WithError(err).Errorf("Error 1204: cannot write file for key '%s'", key)
		http.Error(w, "Error 1204", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Delete deletes the key file. Deleting a key which does not exist is not an error.
func (f *LocalFilesystem) Delete(ctx context.Context, key string) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// DeleteAllWithPrefix deletes all keys starting with prefix
func (f *LocalFilesystem) DeleteAllWithPrefix(ctx context.Context, prefix string) error {
	if err := ValidKey(prefix); err != nil {
		return err
	}
	keys, err := f.ListAllWithPrefix(prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if strings.HasSuffix(prefix, "/") {
		return os.RemoveAll(f.path(prefix))
	}
	return nil
}

// ListAllWithPrefix lists all keys starting with prefix
func (f *LocalFilesystem) ListAllWithPrefix(prefix string) ([]string, error) {
	keys := []string{}
	err := filepath.WalkDir(f.baseFolder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.baseFolder, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	return keys, err
}
