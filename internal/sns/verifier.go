package sns

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/ignite/ses-pipeline/internal/pkg/httpretry"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
)

var (
	// ErrMalformed means the envelope could not be parsed or is missing
	// required fields.
	ErrMalformed = errors.New("sns: malformed envelope")

	// ErrUntrustedCertSource means the signing certificate URL does not point
	// at a trusted host over HTTPS.
	ErrUntrustedCertSource = errors.New("sns: untrusted certificate source")

	// ErrCertUnavailable means the signing certificate could not be fetched
	// or parsed.
	ErrCertUnavailable = errors.New("sns: certificate unavailable")

	// ErrSignatureInvalid means the signature does not match the canonical
	// signing string under the envelope's certificate.
	ErrSignatureInvalid = errors.New("sns: signature verification failed")
)

// DefaultCertHostPattern matches the notification service's certificate
// endpoints, including China partition hosts.
var DefaultCertHostPattern = regexp.MustCompile(`^sns\.[a-z0-9-]+\.amazonaws\.com(\.cn)?$`)

// Verifier authenticates envelopes by checking their RSA signature against
// a certificate fetched from a trusted host. Certificates are cached with a
// bounded TTL so repeated notifications do not refetch.
type Verifier struct {
	client      httpretry.HTTPDoer
	hostPattern *regexp.Regexp
	cache       *certCache
}

// NewVerifier builds a Verifier. A nil client gets a retrying default, and a
// nil hostPattern falls back to DefaultCertHostPattern.
func NewVerifier(client httpretry.HTTPDoer, hostPattern *regexp.Regexp, cacheTTL time.Duration, cacheSize int) *Verifier {
	if client == nil {
		client = httpretry.NewClient(nil, 3)
	}
	if hostPattern == nil {
		hostPattern = DefaultCertHostPattern
	}
	return &Verifier{
		client:      client,
		hostPattern: hostPattern,
		cache:       newCertCache(cacheTTL, cacheSize),
	}
}

// Verify parses the raw webhook body and authenticates its signature.
// It returns the parsed envelope only when the signature checks out.
func (v *Verifier) Verify(ctx context.Context, raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeNotification, TypeSubscriptionConfirmation, TypeUnsubscribeConfirmation:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
	if env.MessageID == "" || env.Timestamp == "" || env.Signature == "" || env.SigningCertURL == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformed)
	}

	sig, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: signature is not base64", ErrMalformed)
	}

	cert, err := v.fetchCert(ctx, env.SigningCertURL)
	if err != nil {
		return nil, err
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: certificate key is not RSA", ErrCertUnavailable)
	}

	signed := env.signingString()
	var hash crypto.Hash
	var digest []byte
	switch env.SignatureVersion {
	case "", "1":
		hash = crypto.SHA1
		sum := sha1.Sum(signed)
		digest = sum[:]
	case "2":
		hash = crypto.SHA256
		sum := sha256.Sum256(signed)
		digest = sum[:]
	default:
		return nil, fmt.Errorf("%w: unsupported signature version %q", ErrMalformed, env.SignatureVersion)
	}

	if err := rsa.VerifyPKCS1v15(pub, hash, digest, sig); err != nil {
		return nil, ErrSignatureInvalid
	}
	return &env, nil
}

// fetchCert returns the signing certificate for the given URL, consulting
// the cache first. The URL must be HTTPS and its host must match the trusted
// pattern before any network call happens.
func (v *Verifier) fetchCert(ctx context.Context, certURL string) (*x509.Certificate, error) {
	parsed, err := url.Parse(certURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad certificate URL", ErrUntrustedCertSource)
	}
	if parsed.Scheme != "https" || !v.hostPattern.MatchString(parsed.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedCertSource, parsed.Host)
	}

	if cert, ok := v.cache.get(certURL); ok {
		return cert, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertUnavailable, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch failed: %v", ErrCertUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch returned %d", ErrCertUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: read failed: %v", ErrCertUnavailable, err)
	}

	block, _ := pem.Decode(body)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrCertUnavailable)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse failed: %v", ErrCertUnavailable, err)
	}

	v.cache.put(certURL, cert)
	logger.Debug("cached signing certificate", "url", certURL)
	return cert, nil
}
