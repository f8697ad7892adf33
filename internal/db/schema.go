package db

// Times are stored as unix seconds in both dialects.

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS exams (
  id             TEXT PRIMARY KEY,
  school_id      TEXT NOT NULL DEFAULT '',
  class_id       TEXT NOT NULL,
  subject_id     TEXT NOT NULL,
  teacher_id     TEXT NOT NULL,
  title          TEXT NOT NULL,
  description    TEXT NOT NULL DEFAULT '',
  duration_min   INTEGER NOT NULL,
  start_time     INTEGER NOT NULL,
  end_time       INTEGER NOT NULL,
  max_attempts   INTEGER NOT NULL DEFAULT 1,
  passing_score  INTEGER NOT NULL DEFAULT 0,
  status         TEXT NOT NULL DEFAULT 'DRAFT',
  created_at     INTEGER NOT NULL,
  updated_at     INTEGER NOT NULL,
  CHECK (start_time < end_time),
  CHECK (max_attempts >= 1)
);

CREATE TABLE IF NOT EXISTS questions (
  id             TEXT PRIMARY KEY,
  exam_id        TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  ord            INTEGER NOT NULL,
  type           TEXT NOT NULL,
  content        TEXT NOT NULL,
  points         REAL NOT NULL,
  explanation    TEXT NOT NULL DEFAULT '',
  options_json   TEXT NOT NULL DEFAULT '[]',
  UNIQUE (exam_id, ord)
);

CREATE TABLE IF NOT EXISTS submissions (
  id                  TEXT PRIMARY KEY,
  exam_id             TEXT NOT NULL REFERENCES exams(id),
  student_id          TEXT NOT NULL,
  attempt             INTEGER NOT NULL,
  status              TEXT NOT NULL,
  start_time          INTEGER NOT NULL,
  end_time            INTEGER,
  score               REAL NOT NULL DEFAULT 0,
  max_score           REAL NOT NULL DEFAULT 0,
  percentage          INTEGER NOT NULL DEFAULT 0,
  passed              BOOLEAN NOT NULL DEFAULT 0,
  late                BOOLEAN NOT NULL DEFAULT 0,
  reconcile_status    TEXT NOT NULL DEFAULT '',
  reconcile_attempts  INTEGER NOT NULL DEFAULT 0,
  reconcile_error     TEXT NOT NULL DEFAULT '',
  UNIQUE (exam_id, student_id, attempt)
);

CREATE UNIQUE INDEX IF NOT EXISTS submissions_one_active
  ON submissions (exam_id, student_id) WHERE status = 'IN_PROGRESS';

CREATE TABLE IF NOT EXISTS submission_answers (
  submission_id  TEXT NOT NULL REFERENCES submissions(id),
  question_id    TEXT NOT NULL,
  answer         TEXT NOT NULL,
  updated_at     INTEGER NOT NULL,
  PRIMARY KEY (submission_id, question_id)
);

CREATE TABLE IF NOT EXISTS grade_ledger (
  id                TEXT PRIMARY KEY,
  student_id        TEXT NOT NULL,
  subject_id        TEXT NOT NULL,
  class_id          TEXT NOT NULL,
  semester          TEXT NOT NULL,
  academic_year     TEXT NOT NULL,
  quiz_score        REAL,
  assignment_score  REAL,
  midterm_score     REAL,
  exam_score        REAL,
  exam_max_score    REAL,
  exam_percentage   INTEGER,
  created_at        INTEGER NOT NULL,
  updated_at        INTEGER NOT NULL,
  UNIQUE (student_id, subject_id, class_id, semester, academic_year)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq         INTEGER PRIMARY KEY AUTOINCREMENT,
  typ         TEXT NOT NULL,
  key         TEXT NOT NULL,
  data        TEXT NOT NULL,
  created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
  id         TEXT PRIMARY KEY,
  school_id  TEXT NOT NULL DEFAULT '',
  class_id   TEXT NOT NULL,
  full_name  TEXT NOT NULL DEFAULT ''
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS exams (
  id             TEXT PRIMARY KEY,
  school_id      TEXT NOT NULL DEFAULT '',
  class_id       TEXT NOT NULL,
  subject_id     TEXT NOT NULL,
  teacher_id     TEXT NOT NULL,
  title          TEXT NOT NULL,
  description    TEXT NOT NULL DEFAULT '',
  duration_min   INTEGER NOT NULL,
  start_time     BIGINT NOT NULL,
  end_time       BIGINT NOT NULL,
  max_attempts   INTEGER NOT NULL DEFAULT 1,
  passing_score  INTEGER NOT NULL DEFAULT 0,
  status         TEXT NOT NULL DEFAULT 'DRAFT',
  created_at     BIGINT NOT NULL,
  updated_at     BIGINT NOT NULL,
  CHECK (start_time < end_time),
  CHECK (max_attempts >= 1)
);

CREATE TABLE IF NOT EXISTS questions (
  id             TEXT PRIMARY KEY,
  exam_id        TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  ord            INTEGER NOT NULL,
  type           TEXT NOT NULL,
  content        TEXT NOT NULL,
  points         DOUBLE PRECISION NOT NULL,
  explanation    TEXT NOT NULL DEFAULT '',
  options_json   TEXT NOT NULL DEFAULT '[]',
  UNIQUE (exam_id, ord)
);

CREATE TABLE IF NOT EXISTS submissions (
  id                  TEXT PRIMARY KEY,
  exam_id             TEXT NOT NULL REFERENCES exams(id),
  student_id          TEXT NOT NULL,
  attempt             INTEGER NOT NULL,
  status              TEXT NOT NULL,
  start_time          BIGINT NOT NULL,
  end_time            BIGINT,
  score               DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_score           DOUBLE PRECISION NOT NULL DEFAULT 0,
  percentage          INTEGER NOT NULL DEFAULT 0,
  passed              BOOLEAN NOT NULL DEFAULT FALSE,
  late                BOOLEAN NOT NULL DEFAULT FALSE,
  reconcile_status    TEXT NOT NULL DEFAULT '',
  reconcile_attempts  INTEGER NOT NULL DEFAULT 0,
  reconcile_error     TEXT NOT NULL DEFAULT '',
  UNIQUE (exam_id, student_id, attempt)
);

CREATE UNIQUE INDEX IF NOT EXISTS submissions_one_active
  ON submissions (exam_id, student_id) WHERE status = 'IN_PROGRESS';

CREATE TABLE IF NOT EXISTS submission_answers (
  submission_id  TEXT NOT NULL REFERENCES submissions(id),
  question_id    TEXT NOT NULL,
  answer         TEXT NOT NULL,
  updated_at     BIGINT NOT NULL,
  PRIMARY KEY (submission_id, question_id)
);

CREATE TABLE IF NOT EXISTS grade_ledger (
  id                TEXT PRIMARY KEY,
  student_id        TEXT NOT NULL,
  subject_id        TEXT NOT NULL,
  class_id          TEXT NOT NULL,
  semester          TEXT NOT NULL,
  academic_year     TEXT NOT NULL,
  quiz_score        DOUBLE PRECISION,
  assignment_score  DOUBLE PRECISION,
  midterm_score     DOUBLE PRECISION,
  exam_score        DOUBLE PRECISION,
  exam_max_score    DOUBLE PRECISION,
  exam_percentage   INTEGER,
  created_at        BIGINT NOT NULL,
  updated_at        BIGINT NOT NULL,
  UNIQUE (student_id, subject_id, class_id, semester, academic_year)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq         BIGSERIAL PRIMARY KEY,
  typ         TEXT NOT NULL,
  key         TEXT NOT NULL,
  data        TEXT NOT NULL,
  created_at  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
  id         TEXT PRIMARY KEY,
  school_id  TEXT NOT NULL DEFAULT '',
  class_id   TEXT NOT NULL,
  full_name  TEXT NOT NULL DEFAULT ''
);
`
