// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

const configSchema = `{
  "type": "object",
  "description": "Configuration for the embedded local metrics drain.",
  "properties": {
    "retention-hours": {
      "description": "How long rolled-up rows survive before the hourly sweep trims them. Defaults to 24.",
      "type": "integer",
      "minimum": 1
    },
    "sweep-interval-millis": {
      "description": "How often the background sweep goroutine runs, in milliseconds. Defaults to 1000.",
      "type": "integer",
      "minimum": 1
    },
    "data-dir": {
      "description": "Optional on-disk badger directory for development-time inspection. Leave empty for the normal in-memory, ephemeral store.",
      "type": "string"
    },
    "process-global-histogram": {
      "description": "Range and precision of the hdrhistogram backing un-tagged process-global Time metrics.",
      "type": "object",
      "properties": {
        "lowest": {
          "type": "integer",
          "minimum": 1
        },
        "highest": {
          "type": "integer",
          "minimum": 1
        },
        "significant-figures": {
          "type": "integer",
          "minimum": 1,
          "maximum": 5
        }
      }
    }
  }
}`
