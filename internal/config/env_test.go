package config

import (
    "testing"
    "time"
)

func TestFromEnvDefaults(t *testing.T) {
    for _, k := range []string{"PAGEPICKER_SERVER_URL", "REQUEST_TIMEOUT", "MAX_UPLOAD_MB", "PROGRESS_INTERVAL", "PROGRESS_CAP", "REDIS_URL", "DOWNLOAD_DIR", "AWS_S3_PREFIX"} {
        t.Setenv(k, "")
    }
    cfg := FromEnv()
    if cfg.Server.BaseURL != "http://localhost:4999" || cfg.Server.UploadPath != "/upload" || cfg.Server.ProcessPath != "/process" {
        t.Fatalf("server = %+v", cfg.Server)
    }
    if cfg.Server.RequestTimeout != 0 {
        t.Fatalf("request timeout = %v, want none", cfg.Server.RequestTimeout)
    }
    if cfg.Server.MaxUploadBytes != 50<<20 {
        t.Fatalf("max upload = %d", cfg.Server.MaxUploadBytes)
    }
    if cfg.Progress.Interval != 500*time.Millisecond || cfg.Progress.MaxStep != 15 || cfg.Progress.Cap != 90 {
        t.Fatalf("progress = %+v", cfg.Progress)
    }
    if cfg.Session.RedisURL != "" || cfg.Archive.DownloadDir != "downloads" || cfg.Archive.S3Prefix != "results/" {
        t.Fatalf("session/archive = %+v %+v", cfg.Session, cfg.Archive)
    }
}

func TestFromEnvOverrides(t *testing.T) {
    t.Setenv("PAGEPICKER_SERVER_URL", "https://pdf.example.test")
    t.Setenv("REQUEST_TIMEOUT", "45s")
    t.Setenv("MAX_UPLOAD_MB", "10")
    t.Setenv("PROGRESS_INTERVAL", "bogus")
    t.Setenv("LOG_CONSOLE", "yes")
    t.Setenv("AXIOM_DATASET", "prod")
    cfg := FromEnv()
    if cfg.Server.BaseURL != "https://pdf.example.test" || cfg.Server.RequestTimeout != 45*time.Second {
        t.Fatalf("server = %+v", cfg.Server)
    }
    if cfg.Server.MaxUploadBytes != 10<<20 {
        t.Fatalf("max upload = %d", cfg.Server.MaxUploadBytes)
    }
    if cfg.Progress.Interval != 500*time.Millisecond {
        t.Fatalf("invalid duration should fall back, got %v", cfg.Progress.Interval)
    }
    if !cfg.Logging.Console || cfg.Axiom.Dataset != "prod_pagepicker" {
        t.Fatalf("logging/axiom = %+v %+v", cfg.Logging, cfg.Axiom)
    }
}

func TestParseBool(t *testing.T) {
    for _, v := range []string{"1", "true", "YES", " on "} {
        if !parseBool(v) {
            t.Errorf("parseBool(%q) = false", v)
        }
    }
    for _, v := range []string{"", "0", "no", "off", "maybe"} {
        if parseBool(v) {
            t.Errorf("parseBool(%q) = true", v)
        }
    }
}
