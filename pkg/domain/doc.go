/*
Package domain contains the core domain models of the step verification engine.

It defines the authored lesson data (Pages and Steps), the outcome of a learner
attempt (Verdict and Feedback) and the durable snapshot of a learner session
(SessionState). This package is kept free of I/O and persistence concerns,
following Hexagonal Architecture principles.

# Key Entities

  - Page: an ordered list of Steps plus the text shown once the page is complete.
  - Step: one checkpoint, carrying its prompt, its checking Strategy and the
    optional descriptor, heuristics, predicate and hints used to judge an attempt.
  - Verdict: Pass, FailMessage, FailSilent or RetryNeeded, with an optional message.
  - Feedback: what the presentation layer receives after each attempt.
  - SessionState: cursor, failure counters and the replay log of a session.
*/
package domain
