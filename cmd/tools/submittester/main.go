// submittester exercises a running postbox server end to end: it loads
// the contact form, posts it with the scraped CSRF token, follows the
// redirect and checks that the success flash renders exactly once.
package main

import (
	"crypto/tls"
	"flag"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var csrfTokenRe = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	base := flag.String("base", "http://localhost:8080", "base URL of the running server")
	path := flag.String("path", "/submit", "form page to exercise (/ or /submit)")
	name := flag.String("name", "Submit Tester", "name form value")
	email := flag.String("email", "tester@example.com", "email form value")
	body := flag.String("message", "Automated test submission.", "message form value")
	timeout := flag.Duration("timeout", 30*time.Second, "per-request timeout")
	insecure := flag.Bool("insecure-skip-verify", false, "skip TLS certificate verification (self-signed staging certs)")
	flag.Parse()

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Timeout: *timeout,
		Jar:     jar,
		// Redirects are followed by hand so the 303 is observable.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if *insecure {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	formURL := strings.TrimRight(*base, "/") + *path

	token := fetchToken(client, formURL)
	log.Printf("loaded form %s, CSRF token acquired", formURL)

	location := postForm(client, formURL, url.Values{
		"name":               {*name},
		"email":              {*email},
		"message":            {*body},
		"gorilla.csrf.Token": {token},
	})
	log.Printf("submission accepted, redirected to %s", location)

	thanksURL := strings.TrimRight(*base, "/") + location
	first := fetchPage(client, thanksURL)
	if !strings.Contains(first, "Thanks! Your message has been sent.") {
		log.Fatal("success flash missing on the redirect target")
	}
	log.Println("success flash rendered")

	second := fetchPage(client, thanksURL)
	if strings.Contains(second, "Thanks! Your message has been sent.") {
		log.Fatal("flash rendered twice; one-time semantics broken")
	}
	log.Println("flash cleared on second view, all checks passed")
}

func fetchToken(client *http.Client, pageURL string) string {
	body := fetchPage(client, pageURL)
	m := csrfTokenRe.FindStringSubmatch(body)
	if m == nil {
		log.Fatalf("no CSRF token field on %s", pageURL)
	}
	return m[1]
}

func fetchPage(client *http.Client, pageURL string) string {
	resp, err := client.Get(pageURL)
	if err != nil {
		log.Fatalf("GET %s: %v", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("GET %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read %s: %v", pageURL, err)
	}
	return string(data)
}

func postForm(client *http.Client, formURL string, values url.Values) string {
	resp, err := client.PostForm(formURL, values)
	if err != nil {
		log.Fatalf("POST %s: %v", formURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		data, _ := io.ReadAll(resp.Body)
		log.Fatalf("POST %s: expected 303, got %d (body: %.200s)", formURL, resp.StatusCode, string(data))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		log.Fatalf("POST %s: redirect without Location header", formURL)
	}
	return location
}
