// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package nuget

import (
	"bufio"
	"regexp"
	"strings"
)

type (
	// PushClass classifies the output of a `dotnet nuget push` invocation in broader categories
	PushClass int
	// Prefix is the log level marker the NuGet client puts in front of some output lines
	Prefix int
)

const (
	unknownPrefix Prefix = iota
	infoPrefix
	warnPrefix
	errorPrefix
	logPrefix
)

const (
	// Failed is the class of choice if no other class fits and the tool did not succeed.
	Failed PushClass = iota
	// Pushed expresses that the feed accepted the package.
	Pushed
	// Duplicate expresses that the package version already exists on the feed and was skipped.
	Duplicate
	// Forbidden expresses that the API key is not allowed to push the package, e.g. it is
	// expired, scoped to other package ids, or the package id is owned by someone else.
	Forbidden
	// Unauthorized expresses that the feed did not accept the credentials at all.
	Unauthorized
	// Transient expresses a failure that is likely to succeed on retry, such as network
	// errors, timeouts or server side errors.
	Transient
)

type rawToken struct {
	raw string
}

type prefixToken struct {
	scope Prefix
	rawToken
}

type pushClassToken struct {
	class PushClass
	known bool
	rawToken
}

type outputToken struct {
	prefixToken prefixToken
	classToken  pushClassToken
}

// PushResult is the interpretation of the output of a push, it presents a class and a message
type PushResult struct {
	Class   PushClass
	Message string
}

// IsFailure returns whether the push result has to be treated as an error
func (r PushResult) IsFailure() bool {
	return r.Class.IsFailure()
}

func (rawToken rawToken) String() string {
	return rawToken.raw
}

func (class PushClass) String() string {
	switch class {
	case Pushed:
		return "Pushed"
	case Duplicate:
		return "Duplicate"
	case Forbidden:
		return "Forbidden"
	case Unauthorized:
		return "Unauthorized"
	case Transient:
		return "Transient"
	}

	return "Failed"
}

// IsFailure returns whether the class represents a push that did not end up on the feed
// and was not skipped as a duplicate
func (class PushClass) IsFailure() bool {
	return class != Pushed && class != Duplicate
}

// ToMessage is a function that transforms a push class to a message
func (class PushClass) ToMessage() string {
	switch class {
	case Pushed:
		return "The package was pushed."
	case Duplicate:
		return "The package version already exists on the feed and was skipped."
	case Forbidden:
		return "The feed refused the package (403 Forbidden). Check that the API key is valid, not expired, and allowed to push this package id."
	case Unauthorized:
		return "The feed did not accept the credentials (401 Unauthorized). Check the API key."
	case Transient:
		return "The feed could not be reached or reported a server error."
	}

	return "The push failed for an unknown reason."
}

func (token outputToken) String() string {
	if token.prefixToken.scope == unknownPrefix {
		return token.classToken.String()
	}

	return token.prefixToken.String() + ": " + token.classToken.String()
}

func parse(output string) (tokenList []outputToken) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if token, ok := parseLine(scanner.Text()); ok {
			tokenList = append(tokenList, token)
		}
	}

	return tokenList
}

func parseLine(line string) (outputToken, bool) {
	if strings.TrimSpace(line) == "" {
		return outputToken{}, false
	}

	prefix := prefixToken{scope: unknownPrefix}
	message := line

	if before, after, found := strings.Cut(line, ":"); found {
		if candidate := parsePrefix(before); candidate.scope != unknownPrefix {
			prefix = candidate
			message = strings.TrimSpace(after)
		}
	}

	if strings.TrimSpace(message) == "" {
		return outputToken{}, false
	}

	return outputToken{
		prefixToken: prefix,
		classToken:  parseMessage(message),
	}, true
}

func parsePrefix(raw string) prefixToken {
	prefix := unknownPrefix

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "info":
		prefix = infoPrefix
	case "warn", "warning":
		prefix = warnPrefix
	case "error":
		prefix = errorPrefix
	case "log", "trace", "debug":
		prefix = logPrefix
	}

	return prefixToken{prefix, rawToken{raw}}
}

var (
	// echoRegEx matches the lines in which the client repeats what it is about to do
	echoRegEx = regexp.MustCompile(`^(pushing\s|(put|get|post|delete)\s+https?://)`)

	quotedRegEx      = regexp.MustCompile(`'[^']*'`)
	urlRegEx         = regexp.MustCompile(`https?://\S+`)
	packageFileRegEx = regexp.MustCompile(`\S+\.s?nupkg\b`)

	statusCodeRegEx     = regexp.MustCompile(`\b(\d{3})\s*\(`)
	serverErrorRegEx    = regexp.MustCompile(`\b5\d{2}\b`)
	transientIndicators = []string{
		"unable to load the service index",
		"timed out",
		"timeout",
		"no such host",
		"name or service not known",
		"connection refused",
		"connection reset",
		"internal server error",
		"bad gateway",
		"service unavailable",
		"gateway timeout",
		"an error occurred while sending the request",
	}
)

func isPushed(raw string) bool {
	return strings.Contains(raw, "your package was pushed")
}

func isDuplicate(raw string) bool {
	return strings.Contains(raw, "was already pushed") ||
		strings.Contains(raw, "already exists") ||
		strings.Contains(raw, "409 (conflict") ||
		strings.HasPrefix(raw, "conflict ")
}

func isForbidden(raw string) bool {
	return strings.Contains(raw, "forbidden") || statusCode(raw) == "403"
}

func isUnauthorized(raw string) bool {
	return strings.Contains(raw, "unauthorized") || statusCode(raw) == "401"
}

func isTransient(raw string) bool {
	for _, indicator := range transientIndicators {
		if strings.Contains(raw, indicator) {
			return true
		}
	}

	return strings.Contains(raw, "response status code does not indicate success") && serverErrorRegEx.MatchString(raw)
}

func statusCode(raw string) string {
	if match := statusCodeRegEx.FindStringSubmatch(raw); match != nil {
		return match[1]
	}

	return ""
}

// subject blanks out package names, file names and URLs, these are chosen by the
// user and must not decide the class
func subject(message string) string {
	message = quotedRegEx.ReplaceAllString(message, "''")
	message = urlRegEx.ReplaceAllString(message, "<url>")
	return packageFileRegEx.ReplaceAllString(message, "<package>")
}

func parseMessage(raw string) pushClassToken {
	class, known := Failed, true
	toCheck := strings.ToLower(strings.TrimSpace(raw))

	if echoRegEx.MatchString(toCheck) {
		return pushClassToken{class: class, known: false, rawToken: rawToken{raw}}
	}

	toCheck = subject(toCheck)

	switch {
	case isPushed(toCheck):
		class = Pushed
	case isDuplicate(toCheck):
		class = Duplicate
	case isForbidden(toCheck):
		class = Forbidden
	case isUnauthorized(toCheck):
		class = Unauthorized
	case isTransient(toCheck):
		class = Transient
	default:
		known = false
	}

	return pushClassToken{class: class, known: known, rawToken: rawToken{raw}}
}

// classifyTokens walks the classes in the order the output is checked:
// a pushed package wins over a skipped duplicate, which wins over any failure
func classifyTokens(tokens []outputToken) (PushClass, bool) {
	for _, class := range []PushClass{Pushed, Duplicate, Forbidden, Unauthorized, Transient} {
		for _, token := range tokens {
			if token.classToken.known && token.classToken.class == class {
				return class, true
			}
		}
	}

	return Failed, false
}

func extractResultFromTokens(tokens []outputToken, succeeded bool) PushResult {
	class, known := classifyTokens(tokens)

	switch {
	case known:
		return PushResult{Class: class, Message: class.ToMessage()}

	case succeeded:
		return PushResult{Class: Pushed, Message: "The push finished without error, but the output did not confirm the package."}
	}

	builder := strings.Builder{}
	for _, token := range tokens {
		if token.prefixToken.scope == errorPrefix {
			builder.WriteString(token.String() + "\n")
		}
	}

	if builder.Len() == 0 {
		return PushResult{Class: Failed, Message: Failed.ToMessage()}
	}

	return PushResult{Class: Failed, Message: strings.TrimRight(builder.String(), "\n")}
}

// ClassifyPush parses the output of a push, derives the result and returns an instance of PushResult.
// The succeeded flag reports whether the tool exited with status zero.
func ClassifyPush(output string, succeeded bool) PushResult {
	return extractResultFromTokens(parse(output), succeeded)
}
