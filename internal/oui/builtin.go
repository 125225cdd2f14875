package oui

// builtinVendors is the embedded fallback registry: the consumer vendors
// that dominate home and small-office DHCP logs. Keys are canonical
// lowercase OUI prefixes.
var builtinVendors = map[string]string{
	// Apple
	"00:03:93": "Apple, Inc.",
	"00:05:02": "Apple, Inc.",
	"00:0a:95": "Apple, Inc.",
	"00:0d:93": "Apple, Inc.",
	"00:10:fa": "Apple, Inc.",
	"00:11:24": "Apple, Inc.",
	"00:13:e8": "Apple, Inc.",
	"00:14:51": "Apple, Inc.",
	"00:16:cb": "Apple, Inc.",
	"00:17:f2": "Apple, Inc.",
	"00:19:e3": "Apple, Inc.",
	"00:1b:63": "Apple, Inc.",
	"00:1e:c2": "Apple, Inc.",
	"00:1f:5b": "Apple, Inc.",
	"00:21:e9": "Apple, Inc.",
	"00:22:41": "Apple, Inc.",
	"00:23:12": "Apple, Inc.",
	"00:23:df": "Apple, Inc.",
	"00:24:36": "Apple, Inc.",
	"00:25:00": "Apple, Inc.",
	"00:25:4b": "Apple, Inc.",
	"00:25:bc": "Apple, Inc.",
	"00:26:08": "Apple, Inc.",
	"00:26:4a": "Apple, Inc.",
	"00:26:b0": "Apple, Inc.",
	"00:26:bb": "Apple, Inc.",
	"2c:f0:5d": "Apple, Inc.",
	"3c:07:54": "Apple, Inc.",
	"88:1f:a1": "Apple, Inc.",

	// Samsung
	"00:12:fb": "Samsung Electronics Co.,Ltd",
	"00:15:99": "Samsung Electronics Co.,Ltd",
	"00:16:32": "Samsung Electronics Co.,Ltd",
	"00:17:c9": "Samsung Electronics Co.,Ltd",
	"00:18:af": "Samsung Electronics Co.,Ltd",
	"00:1a:8a": "Samsung Electronics Co.,Ltd",
	"00:1b:98": "Samsung Electronics Co.,Ltd",
	"00:1d:25": "Samsung Electronics Co.,Ltd",
	"00:1e:7d": "Samsung Electronics Co.,Ltd",
	"00:21:19": "Samsung Electronics Co.,Ltd",
	"00:23:39": "Samsung Electronics Co.,Ltd",
	"00:24:54": "Samsung Electronics Co.,Ltd",
	"44:85:00": "Samsung Electronics Co.,Ltd",
	"5c:f9:38": "Samsung Electronics Co.,Ltd",

	// Google
	"00:11:32": "Google, Inc.",
	"00:1a:11": "Google, Inc.",
	"da:a1:19": "Google, Inc.",
	"f4:f5:e8": "Google, Inc.",

	// Raspberry Pi
	"b8:27:eb": "Raspberry Pi Foundation",
	"dc:a6:32": "Raspberry Pi Foundation",
	"e4:5f:01": "Raspberry Pi Foundation",

	// Nintendo
	"00:09:bf": "Nintendo Co., Ltd.",
	"00:16:56": "Nintendo Co., Ltd.",
	"00:17:ab": "Nintendo Co., Ltd.",
	"00:19:1d": "Nintendo Co., Ltd.",
	"00:1a:e9": "Nintendo Co., Ltd.",
	"00:1b:7a": "Nintendo Co., Ltd.",
	"00:1c:be": "Nintendo Co., Ltd.",
	"00:1e:35": "Nintendo Co., Ltd.",
	"00:1f:32": "Nintendo Co., Ltd.",
	"00:21:47": "Nintendo Co., Ltd.",
	"00:22:aa": "Nintendo Co., Ltd.",
	"00:24:1e": "Nintendo Co., Ltd.",
	"00:24:44": "Nintendo Co., Ltd.",
	"00:25:a0": "Nintendo Co., Ltd.",
	"04:a1:51": "Nintendo Co., Ltd.",

	// Amazon
	"00:fc:8b": "Amazon Technologies Inc.",
	"34:d2:70": "Amazon Technologies Inc.",
	"38:f7:3d": "Amazon Technologies Inc.",
	"4c:ef:c0": "Amazon Technologies Inc.",
	"50:dc:e7": "Amazon Technologies Inc.",
	"68:37:e9": "Amazon Technologies Inc.",
	"6c:56:97": "Amazon Technologies Inc.",
	"74:75:48": "Amazon Technologies Inc.",
	"84:d6:d0": "Amazon Technologies Inc.",
	"8c:85:90": "Amazon Technologies Inc.",
	"ac:63:be": "Amazon Technologies Inc.",
	"b0:7b:25": "Amazon Technologies Inc.",
	"cc:f4:11": "Amazon Technologies Inc.",
	"f0:27:2d": "Amazon Technologies Inc.",
	"fc:65:de": "Amazon Technologies Inc.",

	// Philips
	"00:17:88": "Philips Electronics Nederland B.V.",

	// ARRIS
	"50:c7:bf": "ARRIS Group, Inc.",
	"78:45:c4": "ARRIS Group, Inc.",
}
