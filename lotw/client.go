/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package lotw

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	DefaultEndpoint    = "https://lotw.arrl.org/lotwuser/lotwreport.adi"
	DefaultDownloadDir = "download"
	ADIFContentType    = "application/x-arrl-adif"

	defaultDownloadTimeout = 30 * time.Second
	defaultUploadTimeout   = 2 * time.Minute

	lotwDateLayout      = "2006-01-02"
	fileTimestampLayout = "20060102_150405"
	maxSaveAttempts     = 100

	qslFilePrefix = "lotw_log_qsl_"
	qsoFilePrefix = "lotw_qso_"
)

var lotwEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Config holds the settings a Client is built from.
type Config struct {
	Username        string
	Password        string
	Endpoint        string
	DownloadDir     string
	DownloadTimeout time.Duration
	UploadTimeout   time.Duration
}

// Client talks to the LOTW ADIF report endpoint.
type Client struct {
	username        string
	password        string
	endpoint        string
	downloadDir     string
	downloadTimeout time.Duration
	uploadTimeout   time.Duration
	httpClient      *http.Client
	reconciler      *Reconciler
	now             func() time.Time
}

// NewClient validates config and returns a client. reconciler may be nil when
// downloads are never auto-processed.
func NewClient(config Config, reconciler *Reconciler) (*Client, error) {
	username := strings.TrimSpace(config.Username)
	if username == "" || config.Password == "" {
		return nil, ErrCredentialsNotConfigured
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &Client{
		username:        username,
		password:        config.Password,
		endpoint:        config.Endpoint,
		downloadDir:     config.DownloadDir,
		downloadTimeout: config.DownloadTimeout,
		uploadTimeout:   config.UploadTimeout,
		httpClient:      &http.Client{Jar: jar},
		reconciler:      reconciler,
		now:             time.Now,
	}

	if client.endpoint == "" {
		client.endpoint = DefaultEndpoint
	}

	if client.downloadDir == "" {
		client.downloadDir = DefaultDownloadDir
	}

	if client.downloadTimeout <= 0 {
		client.downloadTimeout = defaultDownloadTimeout
	}

	if client.uploadTimeout <= 0 {
		client.uploadTimeout = defaultUploadTimeout
	}

	return client, nil
}

// Username returns the LOTW login the client was built with.
func (c *Client) Username() string {
	return c.username
}

type uploadResponse struct {
	XMLName xml.Name
	Status  string  `xml:"status"`
	Error   *string `xml:"error"`
}

// SubmitLog uploads an ADI document to LOTW. qsoDate is optional.
func (c *Client) SubmitLog(ctx context.Context, adi string, qsoDate *time.Time) Outcome {
	params := c.credentials()
	params.Set("cmd", "upload")

	if qsoDate != nil {
		if err := validateDate(*qsoDate); err != nil {
			return c.parameterFailure(err)
		}

		params.Set("qso_date", qsoDate.Format(lotwDateLayout))
	}

	var body bytes.Buffer

	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("upfile", "log.adi")
	if err != nil {
		return c.unexpectedFailure(err)
	}

	if _, err := io.WriteString(part, adi); err != nil {
		return c.unexpectedFailure(err)
	}

	if err := form.Close(); err != nil {
		return c.unexpectedFailure(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+params.Encode(), &body)
	if err != nil {
		return c.unexpectedFailure(c.redact(err))
	}

	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.networkFailure(c.redact(err))
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close LOTW upload response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.networkFailure(fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.networkFailure(err)
	}

	var parsed uploadResponse
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		message := fmt.Sprintf("LOTW upload response could not be parsed: %v", err)
		logger.Error("LOTW upload failed", "kind", FailureProtocol, "error", err)

		return failure(FailureProtocol, message)
	}

	if strings.TrimSpace(parsed.Status) != "OK" {
		reason := "unknown error"
		if parsed.Error != nil && strings.TrimSpace(*parsed.Error) != "" {
			reason = strings.TrimSpace(*parsed.Error)
		}

		logger.Error("LOTW rejected upload", "kind", FailureRejected, "reason", reason)

		return failure(FailureRejected, "LOTW upload failed: "+reason)
	}

	logger.Info("Log submitted to LOTW", "bytes", len(adi))

	return Outcome{Success: true, Message: "Log submitted to LOTW"}
}

// DownloadLog fetches QSL confirmations and saves them to the download
// directory. start and end are optional.
func (c *Client) DownloadLog(ctx context.Context, start, end *time.Time) Outcome {
	params := c.credentials()
	params.Set("qso_query", "1")
	params.Set("qso_withown", "yes")
	params.Set("qso_qslsince", lotwEpoch.Format(lotwDateLayout))

	if err := validateRange(start, end); err != nil {
		return c.parameterFailure(err)
	}

	if start != nil {
		params.Set("qso_startdate", start.Format(lotwDateLayout))
	}

	if end != nil {
		params.Set("qso_enddate", end.Format(lotwDateLayout))
	}

	path, outcome := c.download(ctx, params, qslFilePrefix)
	if !outcome.Success {
		return outcome
	}

	outcome.Message = "Log downloaded and saved to: " + path
	logger.Info("LOTW QSL log downloaded", "path", path)

	return outcome
}

// DownloadAllQSOs fetches every QSO regardless of QSL status. start defaults
// to 1900-01-01 and end to now. With autoProcess the saved file is reconciled
// into the store; a store failure there is returned as an error alongside the
// download outcome.
func (c *Client) DownloadAllQSOs(ctx context.Context, start, end *time.Time, autoProcess bool) (Outcome, error) {
	from := lotwEpoch
	if start != nil {
		from = *start
	}

	to := c.now()
	if end != nil {
		to = *end
	}

	if err := validateRange(&from, &to); err != nil {
		return c.parameterFailure(err), nil
	}

	if autoProcess && c.reconciler == nil {
		return c.unexpectedFailure(ErrReconcilerNotConfigured), nil
	}

	params := c.credentials()
	params.Set("qso_query", "1")
	params.Set("qso_qsl", "no")
	params.Set("qso_startdate", from.Format(lotwDateLayout))
	params.Set("qso_enddate", to.Format(lotwDateLayout))

	path, outcome := c.download(ctx, params, qsoFilePrefix)
	if !outcome.Success {
		return outcome, nil
	}

	outcome.Message = "All QSO records downloaded and saved to: " + path
	logger.Info("LOTW QSO log downloaded", "path", path)

	if !autoProcess {
		return outcome, nil
	}

	result, err := c.reconciler.ProcessFile(ctx, path)
	if err != nil {
		return outcome, fmt.Errorf("failed to reconcile %s: %w", path, err)
	}

	outcome.Reconciled = true
	outcome.Added = result.Added
	outcome.Updated = result.Updated

	return outcome, nil
}

func (c *Client) download(ctx context.Context, params url.Values, prefix string) (string, Outcome) {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", c.unexpectedFailure(c.redact(err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.networkFailure(c.redact(err))
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close LOTW download response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.networkFailure(fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), ADIFContentType) {
		logger.Error("LOTW download rejected", "kind", FailureContentType, "content_type", resp.Header.Get("Content-Type"))
		return "", failure(FailureContentType, ErrInvalidContentType.Error())
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.networkFailure(c.redact(err))
	}

	path, err := c.save(prefix, body)
	if err != nil {
		message := fmt.Sprintf("Failed to save file: %v. Check directory permissions and disk space", err)
		logger.Error("LOTW download not saved", "kind", FailureFileWrite, "error", err)

		return "", failure(FailureFileWrite, message)
	}

	return path, Outcome{Success: true, Path: path}
}

// save writes body under a timestamped name. The file only appears once it
// has been written completely.
func (c *Client) save(prefix string, body []byte) (string, error) {
	if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
		return "", err
	}

	base := prefix + c.now().Format(fileTimestampLayout)

	tmp, err := os.CreateTemp(c.downloadDir, "."+prefix+"*.tmp")
	if err != nil {
		return "", err
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return "", err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	defer func() { _ = os.Remove(tmpPath) }()

	// os.Link never replaces an existing file. Same-second downloads get a
	// numbered suffix.
	for i := 0; i < maxSaveAttempts; i++ {
		name := base + ".adi"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.adi", base, i)
		}

		path := filepath.Join(c.downloadDir, name)

		err := os.Link(tmpPath, path)
		if err == nil {
			return path, nil
		}

		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}

	return "", fmt.Errorf("no free file name for %s after %d attempts", base, maxSaveAttempts)
}

func (c *Client) credentials() url.Values {
	params := url.Values{}
	params.Set("login", c.username)
	params.Set("password", c.password)

	return params
}

// redact strips the query string, which carries the password, from URL
// errors returned by net/http.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = c.endpoint
	}

	return err
}

func (c *Client) networkFailure(err error) Outcome {
	logger.Error("LOTW request failed", "kind", FailureNetwork, "error", err)
	return failure(FailureNetwork, fmt.Sprintf("Network request failed: %v. Check the network connection and LOTW service status", err))
}

func (c *Client) parameterFailure(err error) Outcome {
	logger.Error("LOTW request has invalid parameters", "kind", FailureParameter, "error", err)
	return failure(FailureParameter, fmt.Sprintf("Parameter error: %v", err))
}

func (c *Client) unexpectedFailure(err error) Outcome {
	logger.Error("LOTW operation failed unexpectedly", "kind", FailureUnexpected, "error", err)
	return failure(FailureUnexpected, fmt.Sprintf("Unexpected error while processing LOTW log: %v", err))
}

func validateDate(date time.Time) error {
	if date.IsZero() {
		return ErrZeroDate
	}

	if date.Before(lotwEpoch) {
		return fmt.Errorf("%w: %s", ErrDateOutOfRange, date.Format(lotwDateLayout))
	}

	return nil
}

func validateRange(start, end *time.Time) error {
	if start != nil {
		if err := validateDate(*start); err != nil {
			return err
		}
	}

	if end != nil {
		if err := validateDate(*end); err != nil {
			return err
		}
	}

	if start != nil && end != nil && start.After(*end) {
		return ErrDateRangeInverted
	}

	return nil
}
